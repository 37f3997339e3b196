package metadata

// ExtractISBN scans a filename stem left to right, collecting runs of
// digits. Separators -, _, space, and . are skipped without resetting the
// run. A trailing X/x is accepted only when the current digit run is
// exactly 9 digits long (the ISBN-10 check digit). The first digit run of
// length 10 or 13, terminated by a non-separator character or end of
// stem, is returned. No checksum validation is performed.
func ExtractISBN(stem string) string {
	var run []byte

	flush := func() string {
		if len(run) == 10 || len(run) == 13 {
			return string(run)
		}
		return ""
	}

	for i := 0; i < len(stem); i++ {
		c := stem[i]
		switch {
		case c >= '0' && c <= '9':
			run = append(run, c)
		case c == '-' || c == '_' || c == ' ' || c == '.':
			// Separator: skipped without resetting or terminating the run.
		case c == 'X' || c == 'x':
			if len(run) == 9 {
				run = append(run, 'X')
			}
			if isbn := flush(); isbn != "" {
				return isbn
			}
			run = run[:0]
		default:
			if isbn := flush(); isbn != "" {
				return isbn
			}
			run = run[:0]
		}
	}
	return flush()
}

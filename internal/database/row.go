package database

// ScanStrings reads a single text column from every row.
// The returned slice is non-nil on success. ScanStrings always closes the
// Rows, callers do not need to call Close().
func ScanStrings(rows Rows) ([]string, error) {
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts a snowflake id as a JSON string or number. Browsers lose
// precision on large numbers, so responses always use strings.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

package lensapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// wireMovement accepts the record shapes served by both this project's
// server and spreadsheet-backed services, where id and year may be numbers.
type wireMovement struct {
	domain.Movement
	ID   scalar `json:"id"`
	Year scalar `json:"year"`
}

// scalar decodes a JSON string, number or null into its string form.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = scalar(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*s = scalar(n.String())
	}
	return nil
}

// decodeMovements parses a search payload. Anything other than an array of
// records that each carry an id is malformed.
func decodeMovements(body []byte) ([]domain.Movement, error) {
	var wire []wireMovement
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	if wire == nil && !bytes.Equal(bytes.TrimSpace(body), []byte("[]")) {
		return nil, fmt.Errorf("%w: expected an array of records", domain.ErrMalformedResponse)
	}

	movements := make([]domain.Movement, len(wire))
	for i := range wire {
		m := wire[i].Movement
		m.ID = domain.NormaliseID(string(wire[i].ID))
		if m.ID == "" {
			return nil, fmt.Errorf("%w: record %d has no id", domain.ErrMalformedResponse, i)
		}
		m.Year = domain.NormaliseID(string(wire[i].Year))
		if m.Tweets == 0 && m.TweetsCount != "" {
			m.Tweets, _ = strconv.ParseInt(m.TweetsCount, 10, 64)
		}
		movements[i] = m
	}
	return movements, nil
}

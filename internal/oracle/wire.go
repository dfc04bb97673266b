package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"plate-resolver/internal/domain/plate"
)

const lookupQuery = `query licenseSLPPageQuery($lp: String, $state: String) {
  vehicleUrlByLicense: vehicleUrlByLicense(lp: $lp, state: $state) {
    url
    error
    make
    makeId
    model
    modelId
    year
    vin
    __typename
  }
}`

type lookupVariables struct {
	LP    string `json:"lp"`
	State string `json:"state"`
}

type lookupRequest struct {
	OperationName string          `json:"operationName"`
	Variables     lookupVariables `json:"variables"`
	Query         string          `json:"query"`
}

func newLookupRequest(plateText, jurisdiction string) lookupRequest {
	return lookupRequest{
		OperationName: "licenseSLPPageQuery",
		Variables:     lookupVariables{LP: plateText, State: jurisdiction},
		Query:         lookupQuery,
	}
}

type lookupResponse struct {
	Data *struct {
		VehicleURLByLicense *vehicleURL `json:"vehicleUrlByLicense"`
	} `json:"data"`
}

type vehicleURL struct {
	URL   string   `json:"url"`
	Error string   `json:"error"`
	Make  string   `json:"make"`
	Model string   `json:"model"`
	Year  flexYear `json:"year"`
	VIN   string   `json:"vin"`
}

// flexYear accepts the year as a JSON number, a numeric string, or null.
type flexYear int

func (y *flexYear) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*y = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*y = 0
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("year %q: %w", s, err)
	}
	*y = flexYear(n)
	return nil
}

// parseLookup returns the vehicle for a match, nil for a well-formed miss, and
// ErrMalformedResponse when the body does not have the expected shape.
func parseLookup(body []byte) (*plate.VehicleRecord, error) {
	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	v := resp.Data.VehicleURLByLicense
	if v == nil {
		return nil, fmt.Errorf("%w: missing vehicleUrlByLicense", ErrMalformedResponse)
	}
	if v.URL == "" {
		return nil, nil
	}
	return &plate.VehicleRecord{
		Year:      int(v.Year),
		Make:      v.Make,
		Model:     v.Model,
		VIN:       v.VIN,
		SourceURL: v.URL,
	}, nil
}

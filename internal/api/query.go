package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dicomflow/upsrs/internal/dicom"
	"github.com/dicomflow/upsrs/internal/service"
)

// decodeDataSet reads and parses a DICOM JSON request body. An empty body
// decodes to an empty record.
func decodeDataSet(r *http.Request) (dicom.DataSet, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return dicom.NewDataSet(), nil
	}
	return dicom.ParseDataSet(body)
}

// Query parameters with protocol meaning; everything else on a search URL
// is a matching key.
var reservedSearchParams = map[string]bool{
	"workitem":      true,
	"includefield":  true,
	"fuzzymatching": true,
	"offset":        true,
	"limit":         true,
}

// setQueryElement adds one key=value matching constraint to the query
// record. The key is a hex tag code or a dictionary keyword.
func setQueryElement(query dicom.DataSet, key, value string) error {
	tag, vr, ok := dicom.ResolveTagOrKeyword(key)
	if !ok {
		return fmt.Errorf("unknown matching key %q", key)
	}
	if vr == dicom.VRPN {
		query.SetPersonName(tag, value)
		return nil
	}
	if vr == dicom.VRUN {
		vr = dicom.VRLO
	}
	query.SetString(tag, vr, value)
	return nil
}

// searchParamsFrom builds the service search arguments from the URL query.
func searchParamsFrom(values url.Values) (service.SearchParams, error) {
	p := service.SearchParams{Query: dicom.NewDataSet()}
	for key, vals := range values {
		if reservedSearchParams[key] || len(vals) == 0 {
			continue
		}
		if err := setQueryElement(p.Query, key, vals[0]); err != nil {
			return p, err
		}
	}
	for _, v := range values["includefield"] {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				p.IncludeFields = append(p.IncludeFields, f)
			}
		}
	}
	var err error
	if s := values.Get("offset"); s != "" {
		if p.Offset, err = strconv.Atoi(s); err != nil || p.Offset < 0 {
			return p, fmt.Errorf("invalid offset %q", s)
		}
	}
	if s := values.Get("limit"); s != "" {
		if p.Limit, err = strconv.Atoi(s); err != nil || p.Limit < 0 {
			return p, fmt.Errorf("invalid limit %q", s)
		}
	}
	p.FuzzyMatching = parseBoolParam(values.Get("fuzzymatching"))
	return p, nil
}

// parseFilter parses a filter parameter of the form "k=v,k=v" into a query
// record.
func parseFilter(raw string) (dicom.DataSet, error) {
	if raw == "" {
		return nil, nil
	}
	filter := dicom.NewDataSet()
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter pair %q", pair)
		}
		if err := setQueryElement(filter, key, value); err != nil {
			return nil, err
		}
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return filter, nil
}

func parseBoolParam(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

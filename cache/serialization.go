package cache

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/gaborage/go-apicall/transport"
)

var (
	// encMode sorts map keys canonically so the same response always
	// encodes to the same bytes.
	encMode cbor.EncMode

	// decMode bounds decoded sizes; cached bytes may come from a shared store.
	decMode cbor.DecMode
)

//nolint:gochecknoinits // Required for CBOR mode configuration at package load time
func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		MaxArrayElements: 10000,
		MaxMapPairs:      10000,
		MaxNestedLevels:  16,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

// Marshal serializes a value to CBOR bytes.
func Marshal[T any](v T) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes CBOR bytes into a value of type T.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return v, nil
}

// Entry is the stored form of a cached response.
type Entry struct {
	StatusCode int                 `cbor:"1,keyasint"`
	Status     string              `cbor:"2,keyasint,omitempty"`
	Header     map[string][]string `cbor:"3,keyasint,omitempty"`
	Body       []byte              `cbor:"4,keyasint,omitempty"`
	StoredAt   time.Time           `cbor:"5,keyasint"`
}

// EncodeResponse converts resp to CBOR. The decoded body is not stored; it is
// rebuilt from the raw body on the way out.
func EncodeResponse(resp *transport.Response, now time.Time) ([]byte, error) {
	return Marshal(Entry{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.RawBody,
		StoredAt:   now.UTC(),
	})
}

// DecodeResponse restores a response written by EncodeResponse.
func DecodeResponse(data []byte) (*transport.Response, time.Time, error) {
	e, err := Unmarshal[Entry](data)
	if err != nil {
		return nil, time.Time{}, err
	}
	return transport.NewResponse(e.StatusCode, e.Status, http.Header(e.Header), e.Body), e.StoredAt, nil
}

package application

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceAccount is the credential record used to open a calendar session. A
// record is structurally valid iff it carries all four required keys; the full
// document is retained because the provider SDK consumes the whole thing.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`

	raw []byte
}

// JSON returns the complete credential document the record was resolved from.
func (sa ServiceAccount) JSON() []byte {
	return sa.raw
}

var requiredCredentialKeys = []string{"type", "project_id", "private_key", "client_email"}

// ResolveServiceAccount locates a structurally valid service account inside a
// secret blob. Secret stores wrap credentials in several shapes depending on
// how they were entered, so the search tries a fixed, ordered list of
// candidate extractions:
//
//  1. the blob itself is the credential object;
//  2. a top-level value is a credential object;
//  3. a top-level string value is a JSON-encoded credential object.
//
// Top-level values are visited in the order the keys appear in the document,
// and the first match wins.
func ResolveServiceAccount(blob string) (ServiceAccount, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return ServiceAccount{}, fmt.Errorf("%w: secret is not a JSON object", ErrCredentialNotFound)
	}

	if sa, ok := credentialFromObject(doc, []byte(blob)); ok {
		return sa, nil
	}

	for _, key := range topLevelKeys(blob) {
		raw, ok := doc[key]
		if !ok {
			continue
		}

		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			if sa, ok := credentialFromObject(nested, raw); ok {
				return sa, nil
			}
			continue
		}

		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal([]byte(encoded), &inner); err != nil {
			continue
		}
		if sa, ok := credentialFromObject(inner, []byte(encoded)); ok {
			return sa, nil
		}
	}

	return ServiceAccount{}, ErrCredentialNotFound
}

func credentialFromObject(doc map[string]json.RawMessage, raw []byte) (ServiceAccount, bool) {
	for _, key := range requiredCredentialKeys {
		if _, ok := doc[key]; !ok {
			return ServiceAccount{}, false
		}
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return ServiceAccount{}, false
	}
	sa.raw = append([]byte(nil), raw...)
	return sa, true
}

// topLevelKeys returns the keys of a JSON object in declaration order. Map
// iteration order is not a contract we want the credential search depending
// on.
func topLevelKeys(blob string) []string {
	dec := json.NewDecoder(strings.NewReader(blob))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

// ResolveSharedSecret extracts a plain string secret that may have been stored
// bare or wrapped in a one-key JSON object keyed by the secret's own name.
func ResolveSharedSecret(blob, name string) string {
	var doc map[string]string
	if err := json.Unmarshal([]byte(blob), &doc); err == nil {
		if value, ok := doc[name]; ok {
			return value
		}
	}
	return blob
}

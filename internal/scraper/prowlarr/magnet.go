package prowlarr

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var base32StdNoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// Magnet models a BitTorrent magnet URI: magnet:?xt=urn:btih:{hash}&dn=
// {name}&tr={tracker}&tr={tracker}... This is the canonical wire format
// named in the glossary; String and ParseMagnetUri round-trip through it
// losslessly for the info-hash and tracker list, which is all the rest of
// the system needs out of a magnet link.
type Magnet struct {
	Name     string
	InfoHash [20]byte
	Trackers []string
}

// InfoHashStr returns the 40-character lowercase hex info hash.
func (m *Magnet) InfoHashStr() string {
	return hex.EncodeToString(m.InfoHash[:])
}

// String renders m back into a magnet: URI.
func (m *Magnet) String() string {
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(m.InfoHashStr())
	if m.Name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(m.Name))
	}
	for _, tr := range m.Trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String()
}

// ParseMagnetUri parses a magnet: URI into a Magnet, extracting the
// btih info hash from the xt parameter (hex or base32, per BEP 9) along
// with the display name and any tr tracker parameters.
func ParseMagnetUri(raw string) (*Magnet, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse magnet uri: %w", err)
	}
	if u.Scheme != "magnet" {
		return nil, errors.New("not a magnet uri")
	}

	q := u.Query()
	xt := q.Get("xt")
	const prefix = "urn:btih:"
	if !strings.HasPrefix(xt, prefix) {
		return nil, errors.New("magnet uri missing urn:btih xt parameter")
	}
	hashPart := strings.TrimPrefix(xt, prefix)

	hashBytes, err := decodeInfoHash(hashPart)
	if err != nil {
		return nil, err
	}

	m := &Magnet{Name: q.Get("dn")}
	copy(m.InfoHash[:], hashBytes)
	m.Trackers = append(m.Trackers, q["tr"]...)
	return m, nil
}

// decodeInfoHash accepts the two encodings BEP 9 allows for btih: 40-char
// hex or 32-char base32.
func decodeInfoHash(s string) ([]byte, error) {
	switch len(s) {
	case 40:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode hex info hash: %w", err)
		}
		return b, nil
	case 32:
		b, err := base32Decode(strings.ToUpper(s))
		if err != nil {
			return nil, fmt.Errorf("decode base32 info hash: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unexpected info hash length %d", len(s))
	}
}

func base32Decode(s string) ([]byte, error) {
	enc := base32StdNoPad
	return enc.DecodeString(s)
}

package prowlarr

import (
	"crypto/sha1"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/zeebo/bencode"
)

// MetaInfo, Info and File mirror the .torrent file dictionary closely
// enough to derive an info hash and announce list; adapted from the
// teacher's bencode-based torrent metainfo parser, trimmed to the decode
// path since this system never constructs or serves .torrent files itself.
type MetaInfo struct {
	Info         Info
	AnnounceList [][]string
}

type Info struct {
	PieceLength uint32
	Name        string
	Hash        [20]byte
	Length      int64
	NumPieces   uint32
}

type infoType struct {
	PieceLength uint32 `bencode:"piece length"`
	Pieces      []byte `bencode:"pieces"`
	Name        string `bencode:"name"`
	NameUTF8    string `bencode:"name.utf-8,omitempty"`
	Length      int64  `bencode:"length"`
	Files       []file `bencode:"files"`
}

type file struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

var (
	errZeroPieceLength = errors.New("torrent has zero piece length")
	errInvalidPieces   = errors.New("invalid piece data")
)

// parseTorrentFile decodes a .torrent file's bytes into a MetaInfo,
// computing the bittorrent info hash as SHA-1 of the bencoded info dict.
func parseTorrentFile(r io.Reader) (*MetaInfo, error) {
	var t struct {
		Info         bencode.RawMessage `bencode:"info"`
		Announce     bencode.RawMessage `bencode:"announce"`
		AnnounceList bencode.RawMessage `bencode:"announce-list"`
	}
	if err := bencode.NewDecoder(r).Decode(&t); err != nil {
		return nil, err
	}
	if len(t.Info) == 0 {
		return nil, errors.New("no info dict in torrent file")
	}

	var ib infoType
	if err := bencode.DecodeBytes(t.Info, &ib); err != nil {
		return nil, err
	}
	if ib.PieceLength == 0 {
		return nil, errZeroPieceLength
	}
	if len(ib.Pieces)%sha1.Size != 0 {
		return nil, errInvalidPieces
	}
	name := ib.Name
	if ib.NameUTF8 != "" {
		name = ib.NameUTF8
	}
	name = strings.ToValidUTF8(name, string(unicode.ReplacementChar))

	length := ib.Length
	if len(ib.Files) > 0 {
		length = 0
		for _, f := range ib.Files {
			length += f.Length
		}
	}

	hash := sha1.Sum(t.Info)

	mi := &MetaInfo{Info: Info{
		PieceLength: ib.PieceLength,
		Name:        name,
		Hash:        hash,
		Length:      length,
		NumPieces:   uint32(len(ib.Pieces) / sha1.Size),
	}}

	if len(t.AnnounceList) > 0 {
		var ll [][]string
		if err := bencode.DecodeBytes(t.AnnounceList, &ll); err == nil {
			mi.AnnounceList = ll
		}
	} else if len(t.Announce) > 0 {
		var s string
		if err := bencode.DecodeBytes(t.Announce, &s); err == nil && s != "" {
			mi.AnnounceList = [][]string{{s}}
		}
	}

	return mi, nil
}

func flattenTrackers(announceList [][]string) []string {
	var out []string
	for _, tier := range announceList {
		out = append(out, tier...)
	}
	return out
}


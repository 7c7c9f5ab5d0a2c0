package kv

import "encoding/binary"

// Key Namespace Design
// ====================
//
// The store keeps the whole tree in a single ordered keyspace:
//
// Data Type        Prefix   Key Format                     Value
// ==============================================================
// Directory        "d:"     d:<path>                       node (JSON)
// File             "f:"     f:<path>                       node (JSON)
// Content chunk    "c:"     c:<path>\x00<index uint64 BE>  raw bytes
//
// Paths are cleaned by sut.Clean, so they are absolute and never contain NUL.
// That makes the NUL separator in chunk keys unambiguous and keeps all chunks
// of a file contiguous and ordered by index.
//
// Children of directory /a are found with a prefix scan on "d:/a/" and
// "f:/a/". The root has no key of its own; it always exists.

const (
	prefixDir   = "d:"
	prefixFile  = "f:"
	prefixChunk = "c:"
)

func keyDir(p string) []byte {
	return []byte(prefixDir + p)
}

func keyFile(p string) []byte {
	return []byte(prefixFile + p)
}

func keyChildDirs(p string) []byte {
	return []byte(prefixDir + p + "/")
}

func keyChildFiles(p string) []byte {
	return []byte(prefixFile + p + "/")
}

func keyChunkPrefix(p string) []byte {
	return []byte(prefixChunk + p + "\x00")
}

func keyChunk(p string, index int64) []byte {
	prefix := keyChunkPrefix(p)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(index))
	return key
}

// chunkIndex decodes the index suffix of a chunk key.
func chunkIndex(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(key)-8:]))
}

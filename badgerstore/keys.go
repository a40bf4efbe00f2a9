package badgerstore

import (
	"encoding/binary"

	"github.com/brettbedarf/dirstore"
)

// Key layout. Every key starts with a one-byte namespace followed by the
// owner, so owners never share a key and prefix scans stay inside one tree.
//
//	d<owner:8><id:8>              -> JSON storedDir
//	c<owner:8><parent:8><child:8> -> empty (children index, scanned by prefix)
//	g<owner:8><id:8>              -> child id of the last create under id
//	s<owner:8>                    -> badger.Sequence (identifier generator)
//
// All integers are big-endian so children iterate in id order.
const (
	nsDir   byte = 'd'
	nsChild byte = 'c'
	nsGen   byte = 'g'
	nsSeq   byte = 's'
)

func ownerKey(ns byte, owner dirstore.OwnerID, extra int) []byte {
	key := make([]byte, 1+8, 1+8+extra)
	key[0] = ns
	binary.BigEndian.PutUint64(key[1:], uint64(owner))
	return key
}

func appendID(key []byte, id dirstore.DirectoryID) []byte {
	return binary.BigEndian.AppendUint64(key, uint64(id))
}

func keyDir(owner dirstore.OwnerID, id dirstore.DirectoryID) []byte {
	return appendID(ownerKey(nsDir, owner, 8), id)
}

// keyGen is written by every create under id and read by deletes of id so
// the two always conflict.
func keyGen(owner dirstore.OwnerID, id dirstore.DirectoryID) []byte {
	return appendID(ownerKey(nsGen, owner, 8), id)
}

func keyChildPrefix(owner dirstore.OwnerID, parent dirstore.DirectoryID) []byte {
	return appendID(ownerKey(nsChild, owner, 16), parent)
}

func keyChild(owner dirstore.OwnerID, parent, child dirstore.DirectoryID) []byte {
	return appendID(keyChildPrefix(owner, parent), child)
}

func keySeq(owner dirstore.OwnerID) []byte {
	return ownerKey(nsSeq, owner, 0)
}

// childFromKey extracts the child id from a children-index key.
func childFromKey(key []byte) dirstore.DirectoryID {
	return dirstore.DirectoryID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

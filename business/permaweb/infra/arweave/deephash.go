package arweave

import (
	"crypto/sha512"
	"strconv"
)

// deepHashItem is one element of the signature preimage tree: either a blob
// or a list of items.
type deepHashItem struct {
	blob []byte
	list []deepHashItem
}

func blobItem(b []byte) deepHashItem {
	return deepHashItem{blob: b}
}

func listItem(items ...deepHashItem) deepHashItem {
	return deepHashItem{list: items}
}

// deepHash computes the SHA-384 deep hash over a nested blob/list structure.
// This is the preimage format the ledger verifies signatures against, so the
// exact tagging scheme matters: blobs are tagged "blob" plus their decimal
// byte length, lists "list" plus their decimal element count, and list
// elements are folded left into an accumulator.
func deepHash(item deepHashItem) [48]byte {
	if item.list != nil {
		tag := append([]byte("list"), []byte(strconv.Itoa(len(item.list)))...)
		acc := sha512.Sum384(tag)
		return deepHashChunks(item.list, acc)
	}

	tag := append([]byte("blob"), []byte(strconv.Itoa(len(item.blob)))...)
	tagHash := sha512.Sum384(tag)
	blobHash := sha512.Sum384(item.blob)
	return sha512.Sum384(append(tagHash[:], blobHash[:]...))
}

func deepHashChunks(chunks []deepHashItem, acc [48]byte) [48]byte {
	for _, chunk := range chunks {
		chunkHash := deepHash(chunk)
		acc = sha512.Sum384(append(acc[:], chunkHash[:]...))
	}
	return acc
}

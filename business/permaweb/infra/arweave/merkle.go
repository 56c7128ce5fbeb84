package arweave

import "crypto/sha256"

// Chunk merklization parameters. Data is split into chunks of at most
// maxChunkSize bytes; when the split would leave a tail smaller than
// minChunkSize, the last full chunk and the tail are rebalanced so no chunk
// is undersized.
const (
	maxChunkSize = 256 * 1024
	minChunkSize = 32 * 1024

	noteSize = 32
)

type chunk struct {
	dataHash     [32]byte
	minByteRange int
	maxByteRange int
}

type merkleNode struct {
	id           [32]byte
	dataHash     [32]byte
	maxByteRange int
	left, right  *merkleNode
}

func (n *merkleNode) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// chunkData splits data into ledger-sized chunks.
func chunkData(data []byte) []chunk {
	var chunks []chunk

	rest := data
	cursor := 0

	for len(rest) >= maxChunkSize {
		size := maxChunkSize
		remainder := len(rest) - maxChunkSize
		if remainder > 0 && remainder < minChunkSize {
			size = (len(rest) + 1) / 2
		}

		chunks = append(chunks, chunk{
			dataHash:     sha256.Sum256(rest[:size]),
			minByteRange: cursor,
			maxByteRange: cursor + size,
		})
		cursor += size
		rest = rest[size:]
	}

	// A zero-length tail after an exact split carries no data; drop it.
	if len(rest) > 0 || cursor == 0 {
		chunks = append(chunks, chunk{
			dataHash:     sha256.Sum256(rest),
			minByteRange: cursor,
			maxByteRange: cursor + len(rest),
		})
	}
	return chunks
}

// buildTree folds the chunk leaves pairwise into a merkle tree and returns
// its root.
func buildTree(chunks []chunk) *merkleNode {
	nodes := make([]*merkleNode, 0, len(chunks))
	for _, c := range chunks {
		nodes = append(nodes, leafNode(c))
	}

	for len(nodes) > 1 {
		var next []*merkleNode
		for i := 0; i < len(nodes); i += 2 {
			if i+1 == len(nodes) {
				next = append(next, nodes[i])
				continue
			}
			next = append(next, branchNode(nodes[i], nodes[i+1]))
		}
		nodes = next
	}
	return nodes[0]
}

// computeDataRoot builds the merkle tree over the chunks of data and returns
// its root hash. Empty data has an empty root, encoded as an empty string on
// the wire.
func computeDataRoot(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	root := buildTree(chunkData(data)).id
	return root[:]
}

// chunkProofs returns the chunks of data together with the merkle inclusion
// proof of each chunk and the tree root. The proof for a chunk is the
// root-to-leaf walk: each branch contributes left id, right id and split
// offset, the leaf contributes its data hash and end offset.
func chunkProofs(data []byte) ([]chunk, [][]byte, []byte) {
	if len(data) == 0 {
		return nil, nil, nil
	}

	chunks := chunkData(data)
	root := buildTree(chunks)

	proofs := make([][]byte, 0, len(chunks))
	collectProofs(root, nil, &proofs)

	id := root.id
	return chunks, proofs, id[:]
}

func collectProofs(node *merkleNode, prefix []byte, proofs *[][]byte) {
	if node.isLeaf() {
		proof := make([]byte, 0, len(prefix)+sha256.Size+noteSize)
		proof = append(proof, prefix...)
		proof = append(proof, node.dataHash[:]...)
		proof = append(proof, intToNote(node.maxByteRange)...)
		*proofs = append(*proofs, proof)
		return
	}

	partial := make([]byte, 0, len(prefix)+2*sha256.Size+noteSize)
	partial = append(partial, prefix...)
	partial = append(partial, node.left.id[:]...)
	partial = append(partial, node.right.id[:]...)
	partial = append(partial, intToNote(node.left.maxByteRange)...)

	collectProofs(node.left, partial, proofs)
	collectProofs(node.right, partial, proofs)
}

func leafNode(c chunk) *merkleNode {
	dataHash := sha256.Sum256(c.dataHash[:])
	noteHash := sha256.Sum256(intToNote(c.maxByteRange))

	return &merkleNode{
		id:           sha256.Sum256(append(dataHash[:], noteHash[:]...)),
		dataHash:     c.dataHash,
		maxByteRange: c.maxByteRange,
	}
}

func branchNode(left, right *merkleNode) *merkleNode {
	leftHash := sha256.Sum256(left.id[:])
	rightHash := sha256.Sum256(right.id[:])
	noteHash := sha256.Sum256(intToNote(left.maxByteRange))

	preimage := make([]byte, 0, 3*sha256.Size)
	preimage = append(preimage, leftHash[:]...)
	preimage = append(preimage, rightHash[:]...)
	preimage = append(preimage, noteHash[:]...)

	return &merkleNode{
		id:           sha256.Sum256(preimage),
		maxByteRange: right.maxByteRange,
		left:         left,
		right:        right,
	}
}

// intToNote encodes an offset as a 32-byte big-endian buffer.
func intToNote(value int) []byte {
	buf := make([]byte, noteSize)
	v := value
	for i := noteSize - 1; i >= 0 && v > 0; i-- {
		buf[i] = byte(v % 256)
		v /= 256
	}
	return buf
}

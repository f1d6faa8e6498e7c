package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameHash computes the ENS-style node for a dotted name: the recursive
// keccak256 of the parent node and each label hash, with the empty name
// hashing to thirty-two zero bytes.
func NameHash(name string) common.Hash {
	if name == "" {
		return common.Hash{}
	}
	labels := strings.Split(name, ".")
	labelHash := crypto.Keccak256([]byte(labels[len(labels)-1]))
	remainderHash := NameHash(strings.Join(labels[:len(labels)-1], ".")).Bytes()
	return crypto.Keccak256Hash(append(remainderHash, labelHash...))
}

package storage

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/celestiaorg/smt"

	"github.com/blockberries/ledger/types"
)

type proofData struct {
	SideNodes             [][]byte `cramberry:"1"`
	NonMembershipLeafData []byte   `cramberry:"2"`
	SiblingData           []byte   `cramberry:"3"`
}

// Prove returns a proof of key's current leaf against MerkleRoot.
func (s *Storage) Prove(key types.Key) (types.MerkleProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return prove(s.block.tree, s.root(), key)
}

func prove(tree *smt.SparseMerkleTree, root types.Hash, key types.Key) (types.MerkleProof, error) {
	digest := key.Hash256()
	p, err := tree.Prove(digest[:])
	if err != nil {
		return types.MerkleProof{}, fmt.Errorf("%w: prove %s: %v", ErrTree, key, err)
	}
	bz, err := cramberry.Marshal(proofData{
		SideNodes:             p.SideNodes,
		NonMembershipLeafData: p.NonMembershipLeafData,
		SiblingData:           p.SiblingData,
	})
	if err != nil {
		return types.MerkleProof{}, fmt.Errorf("encode proof: %w", err)
	}
	return types.MerkleProof{
		Root: root,
		Ops: []types.ProofOp{{
			Type: types.ProofOpSparseMerkle,
			Key:  digest.Bytes(),
			Data: bz,
		}},
	}, nil
}

// VerifyProof checks that proof commits key to value under its root.
// A nil value checks that key is absent.
func VerifyProof(proof types.MerkleProof, key types.Key, value []byte) bool {
	if len(proof.Ops) != 1 || proof.Ops[0].Type != types.ProofOpSparseMerkle {
		return false
	}
	op := proof.Ops[0]
	digest := key.Hash256()
	if string(op.Key) != string(digest[:]) {
		return false
	}
	var pd proofData
	if err := cramberry.Unmarshal(op.Data, &pd); err != nil {
		return false
	}
	var leaf []byte
	if value != nil {
		if d := leafDigest(key, value); !d.IsZero() {
			leaf = d[:]
		}
	}
	p := smt.SparseMerkleProof{
		SideNodes:             pd.SideNodes,
		NonMembershipLeafData: pd.NonMembershipLeafData,
		SiblingData:           pd.SiblingData,
	}
	return smt.VerifyProof(p, proof.Root[:], digest[:], leaf, types.NewHasher())
}

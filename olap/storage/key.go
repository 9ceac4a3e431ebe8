// Package storage keeps compiled programs: an in-process cache with TTL
// eviction and a persistent badger-backed store.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/wbrown/janus-olap/olap/schema"
)

// Key identifies a compilation by the schema config, the normalized request
// and a variant naming the compiler settings that shape the program text.
// Equal inputs always produce equal keys.
func Key(cfg schema.Config, req schema.Request, variant string) (string, error) {
	h := sha256.New()

	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	reqBytes, err := json.Marshal(req.Normalized())
	if err != nil {
		return "", fmt.Errorf("hash request: %w", err)
	}

	fmt.Fprintf(h, "CONFIG:%d:", len(cfgBytes))
	h.Write(cfgBytes)
	fmt.Fprintf(h, "REQUEST:%d:", len(reqBytes))
	h.Write(reqBytes)
	fmt.Fprintf(h, "VARIANT:%d:", len(variant))
	h.Write([]byte(variant))

	return hex.EncodeToString(h.Sum(nil)), nil
}

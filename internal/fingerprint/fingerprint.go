// Package fingerprint derives deterministic cache keys from generation
// parameters. Two semantically identical requests always map to the same
// key regardless of how the caller ordered its fields.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Request carries the semantic fields of a generation request. AdapterRef is
// the raw adapter-weight descriptor (URL or base64 payload) exactly as
// submitted; it is digested before inclusion since it may be large.
type Request struct {
	Prompt     string
	Width      int
	Height     int
	Steps      int
	Guidance   float64
	Seed       *int64
	AdapterRef string
}

// Compute returns the hex SHA-256 of the canonical serialization of req.
// Canonicalization goes through a map so key order is fixed by the JSON
// encoder, and absent optionals serialize as null rather than being omitted.
func Compute(req Request) string {
	canonical := map[string]any{
		"prompt":   req.Prompt,
		"width":    req.Width,
		"height":   req.Height,
		"steps":    req.Steps,
		"guidance": req.Guidance,
		"seed":     nil,
		"lora":     nil,
	}
	if req.Seed != nil {
		canonical["seed"] = *req.Seed
	}
	if req.AdapterRef != "" {
		canonical["lora"] = digestAdapter(req.AdapterRef)
	}

	// Map marshaling sorts keys, so the serialization is stable.
	blob, err := json.Marshal(canonical)
	if err != nil {
		// Only unmarshalable values can fail here and the map holds none.
		panic(fmt.Sprintf("fingerprint: marshal canonical params: %v", err))
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func digestAdapter(ref string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(ref))
}

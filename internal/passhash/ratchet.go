package passhash

import (
	"hash"

	"ledgerlock/go-backend/internal/catalog"
	"ledgerlock/go-backend/internal/secret"
)

// ratchet runs the three coupled MAC chains keyed by password. Each pass
// feeds every chain its own previous output; every 3rd, 5th and 7th pass the
// prime, alternate and secret chains also absorb the other two outputs.
// Pass outputs are folded into one accumulator per chain by XOR.
func ratchet(p Provider, hk HashKey, password []byte) (verifier, secretHash []byte, err error) {
	digests := [3]catalog.DigestType{hk.Prime, hk.Alternate, hk.Secret}
	var macs [3]hash.Hash
	var running, acc [3][]byte
	defer func() {
		for i := range running {
			secret.Wipe(running[i])
		}
	}()

	for i, d := range digests {
		m, err := p.Mac(catalog.HMAC, d, password)
		if err != nil {
			return nil, nil, err
		}
		m.Write(hk.IV[:])
		macs[i] = m
		running[i] = m.Sum(nil)
		acc[i] = make([]byte, m.Size())
	}

	couple := [3]int{3, 5, 7}
	passes := p.Iterations() + hk.Adjust
	for pass := 1; pass <= passes; pass++ {
		var next [3][]byte
		for i, m := range macs {
			m.Reset()
			m.Write(running[i])
			if pass%couple[i] == 0 {
				for j := range running {
					if j != i {
						m.Write(running[j])
					}
				}
			}
			next[i] = m.Sum(nil)
		}
		for i := range next {
			for b := range acc[i] {
				acc[i][b] ^= next[i][b]
			}
			secret.Wipe(running[i])
			running[i] = next[i]
		}
	}

	verifier = make([]byte, 0, len(acc[0])+len(acc[1]))
	verifier = append(verifier, acc[0]...)
	verifier = append(verifier, acc[1]...)
	secret.Wipe(acc[0], acc[1])
	return verifier, acc[2], nil
}

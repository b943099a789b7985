package mtcrypto

import "math/big"

// millerRabinTrials matches the handshake's own primality check: enough
// rounds that a composite slipping through is not a practical concern for
// values this size, without the cost of a deterministic test.
const millerRabinTrials = 16

// IsProbablePrime reports whether n is prime using the Miller-Rabin test.
// big.Int.ProbablyPrime already implements it correctly; wrapping it here
// keeps the trial count explicit and pinned to the handshake's own choice
// instead of the standard library's default.
func IsProbablePrime(n *big.Int) bool {
	if n.Sign() <= 0 {
		return false
	}
	return n.ProbablyPrime(millerRabinTrials)
}

// IsSafeDHPrime reports whether p is a 2048-bit safe prime compatible with
// generator g (2 <= g <= 7), and that p mod small-constant matches the
// residue class the handshake requires for that particular g. The server
// could otherwise pick a p/g pair which isn't actually safe, tricking a
// naive client into accepting a weak group.
func IsSafeDHPrime(p *big.Int, g int64) bool {
	if p.Sign() <= 0 || g < 2 || g > 7 {
		return false
	}
	if p.BitLen() != 2048 {
		return false
	}
	if !IsProbablePrime(p) {
		return false
	}
	pMinus1Over2 := new(big.Int).Sub(p, one)
	pMinus1Over2.Rsh(pMinus1Over2, 1)
	if !IsProbablePrime(pMinus1Over2) {
		return false
	}

	mod := func(d int64) int64 {
		m := new(big.Int).Mod(p, big.NewInt(d))
		return m.Int64()
	}

	switch g {
	case 2:
		return mod(8) == 7
	case 3:
		return mod(3) == 2
	case 4:
		return true
	case 5:
		r := mod(5)
		return r == 1 || r == 4
	case 6:
		r := mod(24)
		return r == 19 || r == 23
	case 7:
		r := mod(7)
		return r == 3 || r == 5 || r == 6
	}
	return true
}

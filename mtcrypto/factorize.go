package mtcrypto

import (
	"crypto/rand"
	"math/big"
)

// FactorizePQ splits pq (big-endian, the product of two distinct primes, as
// sent in res_PQ) into its two prime factors p < q using Pollard's rho with
// Brent's cycle-detection improvement. pq is expected to fit in 63 bits, as
// the handshake's PQ is always that small.
func FactorizePQ(pq []byte) (p, q []byte) {
	n := new(big.Int).SetBytes(pq)
	g := brent(n)
	other := new(big.Int).Div(n, g)

	pInt, qInt := g, other
	if pInt.Cmp(qInt) > 0 {
		pInt, qInt = qInt, pInt
	}
	return pInt.Bytes(), qInt.Bytes()
}

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// brent returns a nontrivial factor of value using Pollard's rho with
// Brent's cycle detection, matching the handshake's original factorization
// routine (even/size-bound fast paths, then the randomized rho walk).
func brent(value *big.Int) *big.Int {
	if value.Bit(0) == 0 {
		return big.NewInt(2)
	}
	if value.Cmp(two) <= 0 {
		return big.NewInt(1)
	}
	if value.BitLen() > 63 {
		return big.NewInt(1)
	}

	y := randBigInt(value)
	c := randBigInt(value)
	m := randBigInt(value)

	g := big.NewInt(1)
	r := big.NewInt(1)
	q := big.NewInt(1)

	x := new(big.Int)
	ys := new(big.Int)
	tmp := new(big.Int)

	f := func(v *big.Int) *big.Int {
		tmp.Mul(v, v)
		tmp.Add(tmp, c)
		tmp.Mod(tmp, value)
		return new(big.Int).Set(tmp)
	}

	for g.Cmp(one) == 0 {
		x.Set(y)
		for i := new(big.Int); i.Cmp(r) < 0; i.Add(i, one) {
			y = f(y)
		}

		k := big.NewInt(0)
		for k.Cmp(r) < 0 && g.Cmp(one) == 0 {
			ys.Set(y)
			limit := new(big.Int).Sub(r, k)
			if limit.Cmp(m) > 0 {
				limit.Set(m)
			}
			for i := big.NewInt(0); i.Cmp(limit) < 0; i.Add(i, one) {
				y = f(y)
				diff := new(big.Int).Sub(x, y)
				diff.Abs(diff)
				q.Mul(q, diff)
				q.Mod(q, value)
			}
			k.Add(k, m)
			g.GCD(nil, nil, q, value)
		}
		r.Mul(r, two)
	}

	if g.Cmp(value) == 0 {
		for {
			ys = f(ys)
			diff := new(big.Int).Sub(x, ys)
			diff.Abs(diff)
			g.GCD(nil, nil, diff, value)
			if g.Cmp(one) > 0 {
				break
			}
		}
	}
	return g
}

// randBigInt returns a uniform random value in [1, max-1].
func randBigInt(max *big.Int) *big.Int {
	bound := new(big.Int).Sub(max, one)
	if bound.Sign() <= 0 {
		return big.NewInt(1)
	}
	v, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return big.NewInt(1)
	}
	return v.Add(v, one)
}

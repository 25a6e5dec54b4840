package table

type bitmap []uint64

func newBitmap(n int) bitmap { return make(bitmap, (n+63)/64) }

func (b bitmap) get(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }

func (b bitmap) put(i int) { b[i>>6] |= 1 << (uint(i) & 63) }

func (b bitmap) clone() bitmap { return append(bitmap(nil), b...) }

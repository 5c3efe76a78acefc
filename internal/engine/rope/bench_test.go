package rope

import (
	"fmt"
	"strings"
	"testing"
)

var sizes = []int{100, 10000, 100000}

func BenchmarkAppendByte(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			p := NewPool()
			b.ReportAllocs()
			for b.Loop() {
				r := p.New()
				for range size {
					next := r.AppendString("x")
					r.Release()
					r = next
				}
				r.Release()
			}
		})
	}
}

func BenchmarkBuilder(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			p := NewPool()
			b.ReportAllocs()
			for b.Loop() {
				builder := p.NewBuilder()
				for range size {
					_ = builder.WriteByte('x')
				}
				builder.Build().Release()
			}
		})
	}
}

func BenchmarkFlatten(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			p := NewPool()
			r := buildLeft(p, strings.Repeat("x", size))
			defer r.Release()
			b.SetBytes(int64(size))
			b.ReportAllocs()
			for b.Loop() {
				c := r.Clone()
				_ = c.Bytes()
				c.Release()
			}
		})
	}
}

func BenchmarkSubstr(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			p := NewPool()
			r := buildBalanced(p, strings.Repeat("x", size))
			defer r.Release()
			b.ReportAllocs()
			for b.Loop() {
				sub, _ := r.Substr(size/4, size/2)
				sub.Release()
			}
		})
	}
}

func BenchmarkAt(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			p := NewPool()
			r := buildBalanced(p, strings.Repeat("x", size))
			defer r.Release()
			i := 0
			for b.Loop() {
				_, _ = r.At(i % size)
				i += 7919
			}
		})
	}
}

func BenchmarkRelease(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("n=%d", size), func(b *testing.B) {
			p := NewPool()
			text := strings.Repeat("x", size)
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				r := buildLeft(p, text)
				b.StartTimer()
				r.Release()
			}
		})
	}
}

package pool

import (
	"sync"
	"testing"
)

func TestGet_SizeClasses(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"tiny", 1, MinSize},
		{"min", MinSize, MinSize},
		{"min+1", MinSize + 1, 2 * MinSize},
		{"qcif luma", (176 + 64) * (144 + 64), 1 << 16},
		{"vga luma", (640 + 64) * (480 + 64), 1 << 19},
		{"max", MaxSize, MaxSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Get(tt.size)
			if len(b) != tt.size {
				t.Errorf("Get(%d): len = %d", tt.size, len(b))
			}
			if cap(b) != tt.wantCap {
				t.Errorf("Get(%d): cap = %d, want %d", tt.size, cap(b), tt.wantCap)
			}
			Put(b)
		})
	}
}

func TestGet_Oversized(t *testing.T) {
	b := Get(MaxSize + 1)
	if len(b) != MaxSize+1 {
		t.Fatalf("len = %d", len(b))
	}
	Put(b) // dropped, must not panic
}

func TestPut_Foreign(t *testing.T) {
	Put(make([]byte, 100))
	Put(make([]byte, 3000)) // not a size class
	Put(nil)

	b := Get(3000)
	if len(b) != 3000 || cap(b) != 4096 {
		t.Fatalf("Get(3000) after foreign Put: len %d cap %d", len(b), cap(b))
	}
	Put(b)
}

func TestConcurrency(t *testing.T) {
	const goroutines = 16
	const iterations = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				for _, size := range []int{512, 4000, 50000, 300000} {
					b := Get(size)
					if len(b) != size {
						t.Errorf("concurrent Get(%d): len = %d", size, len(b))
						return
					}
					for j := range b {
						b[j] = byte(j)
					}
					Put(b)
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGetPut(b *testing.B) {
	const size = (640 + 64) * (480 + 64)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Put(Get(size))
	}
}

package mpi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCluster_SendRecv(t *testing.T) {
	{ // Test point to point send and receive with exact source and tag
		c := NewCluster(2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			comm := c.Comm(0)
			req := comm.Isend(1, 7, []float64{1, 2, 3})
			comm.Wait(req)
		}()
		go func() {
			defer wg.Done()
			comm := c.Comm(1)
			buf := make([]float64, 3)
			req := comm.Irecv(0, 7, buf)
			st := comm.Wait(req)
			assert.Equal(t, 0, st.Source)
			assert.Equal(t, 7, st.Tag)
			assert.Equal(t, 3, st.Count)
			assert.Equal(t, []float64{1, 2, 3}, buf)
		}()
		wg.Wait()
	}
	{ // Test wildcard source and tag matching
		c := NewCluster(3)
		var wg sync.WaitGroup
		wg.Add(3)
		for rank := 1; rank < 3; rank++ {
			go func(rank int) {
				defer wg.Done()
				comm := c.Comm(rank)
				comm.Wait(comm.Isend(0, rank*10, []float64{float64(rank)}))
			}(rank)
		}
		go func() {
			defer wg.Done()
			comm := c.Comm(0)
			seen := make(map[int]float64)
			for n := 0; n < 2; n++ {
				buf := make([]float64, 1)
				st := comm.Wait(comm.Irecv(AnySource, AnyTag, buf))
				seen[st.Source] = buf[0]
				assert.Equal(t, st.Source*10, st.Tag)
			}
			assert.Equal(t, map[int]float64{1: 1, 2: 2}, seen)
		}()
		wg.Wait()
	}
	{ // Test that a truncated receive still reports the full message length
		c := NewCluster(2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			comm := c.Comm(0)
			comm.Wait(comm.Isend(1, 0, []float64{1, 2, 3, 4}))
		}()
		go func() {
			defer wg.Done()
			comm := c.Comm(1)
			buf := make([]float64, 2)
			st := comm.Wait(comm.Irecv(0, 0, buf))
			assert.Equal(t, 4, st.Count)
			assert.Equal(t, []float64{1, 2}, buf)
		}()
		wg.Wait()
	}
}

func TestCluster_WaitAny(t *testing.T) {
	c := NewCluster(2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		comm := c.Comm(0)
		reqs := []*Request{
			comm.Isend(1, 1, []float64{10}),
			comm.Isend(1, 2, []float64{20}),
		}
		comm.WaitAll(reqs)
	}()
	go func() {
		defer wg.Done()
		comm := c.Comm(1)
		var (
			buf1 = make([]float64, 1)
			buf2 = make([]float64, 1)
		)
		reqs := []*Request{
			comm.Irecv(AnySource, 1, buf1),
			comm.Irecv(AnySource, 2, buf2),
		}
		seen := make(map[int]bool)
		for n := 0; n < 2; n++ {
			ix, st := comm.WaitAny(reqs)
			assert.False(t, seen[ix]) // Each request completes exactly once
			seen[ix] = true
			assert.Equal(t, 1, st.Count)
		}
		assert.Equal(t, []float64{10}, buf1)
		assert.Equal(t, []float64{20}, buf2)
	}()
	wg.Wait()
}

func TestCluster_Collectives(t *testing.T) {
	{ // Test barrier followed by sum and max reductions
		var (
			size = 4
			c    = NewCluster(size)
			wg   sync.WaitGroup
			mu   sync.Mutex
			sums [][]float64
		)
		wg.Add(size)
		for rank := 0; rank < size; rank++ {
			go func(rank int) {
				defer wg.Done()
				comm := c.Comm(rank)
				comm.Barrier()

				r := float64(rank)
				sum := comm.Reduce(OpSum, []float64{r, 1}, 0)
				max := comm.Reduce(OpMax, []float64{r, 1}, 0)
				if rank == 0 {
					mu.Lock()
					sums = append(sums, sum, max)
					mu.Unlock()
				} else {
					assert.Nil(t, sum)
					assert.Nil(t, max)
				}
			}(rank)
		}
		wg.Wait()
		assert.Equal(t, [][]float64{{6, 4}, {3, 1}}, sums)
	}
	{ // Test repeated barriers reuse cleanly across generations
		var (
			size = 3
			c    = NewCluster(size)
			wg   sync.WaitGroup
		)
		wg.Add(size)
		for rank := 0; rank < size; rank++ {
			go func(rank int) {
				defer wg.Done()
				comm := c.Comm(rank)
				for n := 0; n < 10; n++ {
					comm.Barrier()
				}
			}(rank)
		}
		wg.Wait()
	}
}

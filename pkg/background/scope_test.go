package background

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func producer(id string, data chan<- int) func(context.Context) {
	return func(ctx context.Context) {
		for i := 0; ; i++ {
			select {
			case data <- i:
			case <-ctx.Done():
				fmt.Println(id, "done")
				return
			}
		}
	}
}

func ExampleScope() {
	data1, data2 := make(chan int), make(chan int)

	write1, cancelWrite1 := NewScope(context.Background())
	write2, cancelWrite2 := NewScope(context.Background())

	write1.Go(producer("DATA-1 *PRODUCER*", data1))
	<-data1
	write2.Go(producer("DATA-2 *PRODUCER*", data2)) // blocked due to no consumer for data2

	// Cancel scopes in desired order:
	cancelWrite2()
	cancelWrite1()

	// Output:
	// DATA-2 *PRODUCER* done
	// DATA-1 *PRODUCER* done
}

func ExampleScope_expiredOrActive() {
	scope1, cancel1 := NewScope(context.Background())
	defer cancel1()
	scope2, cancel2 := NewScope(context.Background())
	cancel2()
	fmt.Println(scope1.Context().Err() != nil, scope2.Context().Err() != nil)

	// Output:
	// false true
}

func TestScope_DerivedFromParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	s, cancel := NewScope(parent)
	defer cancel()

	cancelParent()
	<-s.Context().Done()
	assert.Error(t, s.Context().Err())
}

func TestScope_WaitTimeout(t *testing.T) {
	s, cancel := NewScope(context.Background())
	defer cancel()
	release := make(chan struct{})
	assert.True(t, s.Go(func(ctx context.Context) {
		<-release
	}))
	assert.False(t, s.WaitTimeout(10*time.Millisecond), "member ignores cancellation")
	assert.Error(t, s.Context().Err())

	close(release)
	assert.True(t, s.WaitTimeout(time.Second))
}

func TestScope_GoAfterStop(t *testing.T) {
	s, cancel := NewScope(context.Background())
	defer cancel()
	s.Stop()

	ran := make(chan struct{}, 1)
	assert.False(t, s.Go(func(ctx context.Context) {
		ran <- struct{}{}
	}))
	assert.True(t, s.WaitTimeout(time.Second))
	select {
	case <-ran:
		assert.Fail(t, "member started in stopped scope")
	default:
	}
}

func TestScope_GoRacingWait(t *testing.T) {
	s, cancel := NewScope(context.Background())
	defer cancel()

	var (
		wg       sync.WaitGroup
		accepted int32
		finished int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ok := s.Go(func(ctx context.Context) {
					<-ctx.Done()
					atomic.AddInt32(&finished, 1)
				})
				if !ok {
					return
				}
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	assert.True(t, s.WaitTimeout(2*time.Second))
	wg.Wait()
	assert.Equal(t, atomic.LoadInt32(&accepted), atomic.LoadInt32(&finished), "every accepted member is waited")
}

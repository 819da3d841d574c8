package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store with a 10 minute TTL", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
		store := NewMemoryStore(ctx, WithTTL(10*time.Minute), WithClock(clock.Now), WithSweepInterval(time.Hour))
		defer store.Close()

		Convey("When nothing was stored", func() {
			_, err := store.Get(ctx, "alice")

			Convey("Then lookups miss", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a session is stored", func() {
			So(store.Put(ctx, "alice", "sess-1"), ShouldBeNil)

			Convey("Then it is returned", func() {
				sess, err := store.Get(ctx, "alice")
				So(err, ShouldBeNil)
				So(sess.SessionID, ShouldEqual, "sess-1")
				So(sess.UpdatedAt, ShouldEqual, clock.Now())
				So(store.Count(ctx), ShouldEqual, 1)
			})

			Convey("And a newer session replaces it", func() {
				So(store.Put(ctx, "alice", "sess-2"), ShouldBeNil)
				sess, err := store.Get(ctx, "alice")
				So(err, ShouldBeNil)
				So(sess.SessionID, ShouldEqual, "sess-2")
				So(store.Count(ctx), ShouldEqual, 1)
			})

			Convey("And an empty session id forgets the user", func() {
				So(store.Put(ctx, "alice", ""), ShouldBeNil)
				_, err := store.Get(ctx, "alice")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("And after the TTL it is no longer returned", func() {
				clock.Advance(10 * time.Minute)
				_, err := store.Get(ctx, "alice")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)

				Convey("And a sweep removes it", func() {
					So(store.sweep(), ShouldEqual, 1)
					So(store.Count(ctx), ShouldEqual, 0)
				})
			})

			Convey("And Delete forgets it", func() {
				store.Delete(ctx, "alice")
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the user id is empty", func() {
			So(store.Put(ctx, "", "sess"), ShouldEqual, ErrEmptyUser)
		})

		Convey("When Close is called twice", func() {
			So(func() {
				store.Close()
				store.Close()
			}, ShouldNotPanic)
		})
	})

	Convey("Given a store with remembering disabled", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(ctx, WithTTL(0))
		defer store.Close()

		So(store.Put(ctx, "alice", "sess-1"), ShouldBeNil)

		Convey("Then nothing is kept", func() {
			_, err := store.Get(ctx, "alice")
			So(err, ShouldEqual, ErrNotFound)
			So(store.Count(ctx), ShouldEqual, 0)
		})
	})

	Convey("Given a store with a fast sweeper", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		store := NewMemoryStore(ctx, WithTTL(time.Millisecond), WithSweepInterval(5*time.Millisecond))
		So(store.Put(ctx, "alice", "sess-1"), ShouldBeNil)

		Convey("Then expired entries disappear on their own", func() {
			deadline := time.Now().Add(2 * time.Second)
			for store.Count(ctx) > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(store.Count(ctx), ShouldEqual, 0)

			cancel()
			store.Close()
		})
	})
}

func TestMemoryStoreConcurrency(t *testing.T) {
	Convey("Given concurrent writers and readers", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(ctx, WithTTL(time.Hour))
		defer store.Close()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				user := fmt.Sprintf("user-%d", i%5)
				for j := 0; j < 50; j++ {
					_ = store.Put(ctx, user, fmt.Sprintf("sess-%d-%d", i, j))
					_, _ = store.Get(ctx, user)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then each user holds exactly one session", func() {
			So(store.Count(ctx), ShouldEqual, 5)
		})
	})
}

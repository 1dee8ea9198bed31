package storage

import "context"

// HostSecureStorage is the callback-style API exposed by the chat host for
// its secure store. Callbacks may be invoked from another goroutine. A
// missing key is reported as an empty value with a nil error.
type HostSecureStorage interface {
	GetItem(key string, callback func(value string, err error))
	SetItem(key, value string, callback func(err error))
	RemoveItem(key string, callback func(err error))
	Clear(callback func(err error))
}

// HostStore converts the callback API to the blocking Store contract.
// Host errors are propagated verbatim; a missing key resolves ("", false, nil).
type HostStore struct {
	secure HostSecureStorage
}

func NewHostStore(secure HostSecureStorage) *HostStore {
	return &HostStore{secure: secure}
}

type getResult struct {
	value string
	err   error
}

func (s *HostStore) Get(ctx context.Context, key string) (string, bool, error) {
	ch := make(chan getResult, 1)
	s.secure.GetItem(key, func(value string, err error) {
		ch <- getResult{value: value, err: err}
	})
	select {
	case res := <-ch:
		if res.err != nil {
			return "", false, res.err
		}
		if res.value == "" {
			return "", false, nil
		}
		return res.value, true, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (s *HostStore) Set(ctx context.Context, key, value string) error {
	return s.wait(ctx, func(cb func(error)) {
		s.secure.SetItem(key, value, cb)
	})
}

func (s *HostStore) Remove(ctx context.Context, key string) error {
	return s.wait(ctx, func(cb func(error)) {
		s.secure.RemoveItem(key, cb)
	})
}

func (s *HostStore) Clear(ctx context.Context) error {
	return s.wait(ctx, func(cb func(error)) {
		s.secure.Clear(cb)
	})
}

func (s *HostStore) wait(ctx context.Context, op func(callback func(err error))) error {
	ch := make(chan error, 1)
	op(func(err error) { ch <- err })
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

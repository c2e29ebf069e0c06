// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/samber/oops"
)

var handleAdjectives = []string{
	"clever", "jolly", "brave", "sly", "gentle", "swift", "quiet", "bold",
	"bright", "calm", "eager", "fancy", "keen", "lucky", "merry", "nimble",
	"proud", "rapid", "sunny", "witty",
}

var handleNouns = []string{
	"panda", "fox", "raccoon", "koala", "lion", "otter", "badger", "falcon",
	"heron", "lynx", "marten", "owl", "puffin", "quokka", "robin", "seal",
	"tiger", "walrus", "yak", "zebra",
}

// GenerateHandle returns a random handle of the form adjective_noun_NNN.
func GenerateHandle() string {
	//nolint:gosec // handles are public identifiers, not secrets
	return fmt.Sprintf("%s_%s_%d",
		handleAdjectives[rand.IntN(len(handleAdjectives))],
		handleNouns[rand.IntN(len(handleNouns))],
		rand.IntN(1000),
	)
}

// HandleAllocator hands out handles that are not present in a Store.
type HandleAllocator struct {
	generate func() string
}

// NewHandleAllocator creates an allocator. A nil generator uses GenerateHandle.
func NewHandleAllocator(generate func() string) *HandleAllocator {
	if generate == nil {
		generate = GenerateHandle
	}
	return &HandleAllocator{generate: generate}
}

// Allocate regenerates candidates until one is free. Collisions are rare enough
// that the loop is unbounded; only context cancellation stops it.
func (a *HandleAllocator) Allocate(ctx context.Context, store Store) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", oops.Code("HANDLE_ALLOCATE_FAILED").Wrap(err)
		}
		candidate := a.generate()
		taken, err := handleTaken(ctx, store, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

// Reserve checks a caller-supplied handle and returns it unchanged when free.
func (a *HandleAllocator) Reserve(ctx context.Context, store Store, handle string) (string, error) {
	taken, err := handleTaken(ctx, store, handle)
	if err != nil {
		return "", err
	}
	if taken {
		return "", errDuplicateHandle(handle)
	}
	return handle, nil
}

func handleTaken(ctx context.Context, store Store, handle string) (bool, error) {
	_, err := store.Get(ctx, ByHandle(handle))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errStore("get account by handle", err)
	}
	return true, nil
}

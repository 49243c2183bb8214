// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides readiness reactors for the relay event loop:
// level-triggered epoll on Linux, poll(2) on the BSDs and darwin.
// Every backend implements api.Reactor and is owned by a single goroutine.
package reactor

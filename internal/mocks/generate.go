// Package mocks provides gomock implementations of the interfaces the
// session controller depends on.
//
// To regenerate after an interface change, run:
//
//	go generate ./internal/mocks
package mocks

// MockBackend covers auth.Backend: Session, Login, Logout
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_mock.go github.com/jrsteele09/pool-admin/auth Backend

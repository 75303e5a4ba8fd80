// Package mocks provides mock implementations for testing the sensemaker services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the repository ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(job, nil)
package mocks

// MockJobRepository: Create, GetByID, Update, Delete, List, ListChildren
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/sensemaker/internal/core JobRepository

// MockCacheRepository: Set, Get, Delete, DeleteMatching, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/sensemaker/internal/core CacheRepository

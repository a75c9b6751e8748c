// Package mocks holds testify mocks of the interfaces the engine depends on.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/schema"
	"github.com/xkilldash9x/layerlint/internal/services"
)

var (
	_ config.Interface   = (*MockConfig)(nil)
	_ schema.Source      = (*MockSchemaSource)(nil)
	_ schema.Validator   = (*MockValidator)(nil)
	_ services.Directory = (*MockServiceDirectory)(nil)
)

// -- Config Mock --

// MockConfig mocks config.Interface.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Project() config.ProjectConfig {
	args := m.Called()
	return args.Get(0).(config.ProjectConfig)
}

func (m *MockConfig) Rules() config.RulesConfig {
	args := m.Called()
	return args.Get(0).(config.RulesConfig)
}

func (m *MockConfig) Schema() config.SchemaConfig {
	args := m.Called()
	return args.Get(0).(config.SchemaConfig)
}

func (m *MockConfig) Services() config.ServicesConfig {
	args := m.Called()
	return args.Get(0).(config.ServicesConfig)
}

func (m *MockConfig) Report() config.ReportConfig {
	args := m.Called()
	return args.Get(0).(config.ReportConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Watch() config.WatchConfig {
	args := m.Called()
	return args.Get(0).(config.WatchConfig)
}

// -- Schema Mocks --

// MockSchemaSource mocks schema.Source.
type MockSchemaSource struct {
	mock.Mock
}

func (m *MockSchemaSource) Validator(ctx context.Context, location string) (schema.Validator, error) {
	args := m.Called(ctx, location)
	if v := args.Get(0); v != nil {
		return v.(schema.Validator), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockValidator mocks schema.Validator.
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(document string) ([]schema.Error, error) {
	args := m.Called(document)
	if errs := args.Get(0); errs != nil {
		return errs.([]schema.Error), args.Error(1)
	}
	return nil, args.Error(1)
}

// -- Service Directory Mock --

// MockServiceDirectory mocks services.Directory.
type MockServiceDirectory struct {
	mock.Mock
}

func (m *MockServiceDirectory) Methods(service string) ([]string, error) {
	args := m.Called(service)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockServiceDirectory) Params(service, method string) ([]string, error) {
	args := m.Called(service, method)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// -- Store Mock --

// MockStore mocks the run archive.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ArchiveRun(ctx context.Context, report *diagnostics.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

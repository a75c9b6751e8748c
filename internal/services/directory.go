// Package services answers questions about the ERP service contracts that
// REST calls in a layer refer to.
package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownService = errors.New("unknown service")
	ErrUnknownMethod  = errors.New("unknown method")
)

// Directory resolves service method signatures.
type Directory interface {
	// Methods lists the methods of service.
	Methods(service string) ([]string, error)
	// Params lists the input parameter names of service.method, excluding
	// output parameters.
	Params(service, method string) ([]string, error)
}

// Manifest is the on-disk form of a static directory:
//
//	services:
//	  Erp.BO.CustomerSvc:
//	    GetByID: [custNum]
//	    Update: [ds]
type Manifest struct {
	Services map[string]map[string][]string `yaml:"services"`
}

// StaticDirectory is an in-memory Directory. Lookups ignore case.
type StaticDirectory struct {
	services map[string]service
}

type service struct {
	name    string
	methods map[string]method
}

type method struct {
	name   string
	params []string
}

// NewStaticDirectory builds a directory from service → method → params.
func NewStaticDirectory(entries map[string]map[string][]string) *StaticDirectory {
	d := &StaticDirectory{services: make(map[string]service, len(entries))}
	for svcName, methods := range entries {
		svc := service{name: svcName, methods: make(map[string]method, len(methods))}
		for mName, params := range methods {
			svc.methods[strings.ToLower(mName)] = method{name: mName, params: append([]string(nil), params...)}
		}
		d.services[strings.ToLower(svcName)] = svc
	}
	return d
}

// LoadManifest reads a YAML manifest file.
func LoadManifest(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse service manifest %s: %w", path, err)
	}
	return NewStaticDirectory(m.Services), nil
}

func (d *StaticDirectory) Methods(svcName string) ([]string, error) {
	svc, ok := d.services[strings.ToLower(svcName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, svcName)
	}
	out := make([]string, 0, len(svc.methods))
	for _, m := range svc.methods {
		out = append(out, m.name)
	}
	sort.Strings(out)
	return out, nil
}

func (d *StaticDirectory) Params(svcName, methodName string) ([]string, error) {
	svc, ok := d.services[strings.ToLower(svcName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, svcName)
	}
	m, ok := svc.methods[strings.ToLower(methodName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, svcName, methodName)
	}
	return append([]string(nil), m.params...), nil
}

// Len returns the number of services.
func (d *StaticDirectory) Len() int {
	return len(d.services)
}

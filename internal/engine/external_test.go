package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/config"
	"github.com/xkilldash9x/layerlint/internal/diagnostics"
	"github.com/xkilldash9x/layerlint/internal/mocks"
	"github.com/xkilldash9x/layerlint/internal/schema"
	"github.com/xkilldash9x/layerlint/internal/services"
)

const restEventsFile = `{
  "$schema": "https://schemas.example.com/events.json",
  "events": [
    {
      "id": "load",
      "trigger": {"type": "init"},
      "actions": [
        {
          "type": "rest-erp",
          "param": {
            "svc": "Erp.BO.OrderSvc",
            "methodName": "GetByID",
            "methodParameters": [{"field": "orderNum"}]
          }
        }
      ]
    }
  ]
}`

func TestRun_ExternalCollaborators(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := writeProject(t, map[string]string{"events.jsonc": restEventsFile})

	validator := new(mocks.MockValidator)
	validator.On("Validate", mock.AnythingOfType("string")).Return([]schema.Error{
		{Line: 5, Path: "root.events[0].id", Message: "String length must be greater than or equal to 5", Kind: "string_gte"},
	}, nil)

	source := new(mocks.MockSchemaSource)
	source.On("Validator", mock.Anything, "https://schemas.example.com/events.json").Return(validator, nil)

	directory := new(mocks.MockServiceDirectory)
	directory.On("Methods", "Erp.BO.OrderSvc").Return([]string{"GetByID"}, nil)
	directory.On("Params", "Erp.BO.OrderSvc", "GetByID").Return([]string{"company", "orderNum", "ds"}, nil)

	store := new(mocks.MockStore)
	store.On("ArchiveRun", mock.Anything, mock.AnythingOfType("*diagnostics.Report")).Return(nil)

	e := newEngine(t, newTestConfig(), WithSchemaSource(source), WithServices(directory), WithStore(store))
	report, err := e.Run(context.Background(), dir)
	require.NoError(t, err)

	bySource := make(map[string][]diagnostics.ReportItem)
	for _, it := range report.Items {
		bySource[it.Source] = append(bySource[it.Source], it)
	}

	require.Len(t, bySource["SchemaValidation"], 1)
	schemaItem := bySource["SchemaValidation"][0]
	assert.Equal(t, diagnostics.ValidationScheme, schemaItem.ValidationType)
	assert.Equal(t, "root.events[0].id", schemaItem.JsonPath)
	assert.Contains(t, schemaItem.Message, "Line 5: String length")

	require.Len(t, bySource["IncorrectRestCalls"], 1, "only the non-conventional parameter is missing")
	assert.Equal(t, `Required parameter "company" of Erp.BO.OrderSvc.GetByID is missing`, bySource["IncorrectRestCalls"][0].Message)

	validator.AssertExpectations(t)
	source.AssertExpectations(t)
	directory.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "ArchiveRun", 1)
}

func TestRun_SchemaUnavailable(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := writeProject(t, map[string]string{"events.jsonc": restEventsFile})

	source := new(mocks.MockSchemaSource)
	source.On("Validator", mock.Anything, mock.Anything).
		Return(nil, &schema.LoadError{Location: "https://schemas.example.com/events.json", Message: "offline and not cached"})

	directory := new(mocks.MockServiceDirectory)
	directory.On("Methods", "Erp.BO.OrderSvc").Return(nil, services.ErrUnknownService)

	e := newEngine(t, newTestConfig(), WithSchemaSource(source), WithServices(directory))
	report, err := e.Run(context.Background(), dir)
	require.NoError(t, err, "collaborator failures become diagnostics")

	var schemaMsgs, restMsgs []string
	for _, it := range report.Items {
		switch it.Source {
		case "SchemaValidation":
			schemaMsgs = append(schemaMsgs, it.Message)
		case "IncorrectRestCalls":
			restMsgs = append(restMsgs, it.Message)
		}
	}
	require.Len(t, schemaMsgs, 1)
	assert.Contains(t, schemaMsgs[0], "Cannot load schema:")
	assert.Equal(t, []string{`Unknown service "Erp.BO.OrderSvc"`}, restMsgs)
	directory.AssertNotCalled(t, "Params", mock.Anything, mock.Anything)
}

func TestNew_WithMockConfig(t *testing.T) {
	cfg := new(mocks.MockConfig)
	cfg.On("Rules").Return(config.RulesConfig{Disabled: []string{"NoSuchRule"}})

	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rules.disabled")
	cfg.AssertExpectations(t)
	cfg.AssertNotCalled(t, "Services")
}

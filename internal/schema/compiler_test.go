package schema

import (
	"context"
	"testing"

	"formflow/internal/step"
	"formflow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompiler_Prepare(t *testing.T) {
	compiler := NewCompilerWithCache(64)
	ctx := context.Background()

	err := compiler.Prepare(ctx, DefinitionSchema())
	require.NoError(t, err)

	// cached second run
	err = compiler.Prepare(ctx, DefinitionSchema())
	require.NoError(t, err)
}

func TestCompiler_ValidateDefinition(t *testing.T) {
	compiler := NewCompilerWithCache(64)
	ctx := context.Background()

	wf := workflow.Workflow{
		"consulting": {
			step.New(step.TypeText),
			step.New(step.TypeEmail),
			step.New(step.TypeEndScreen),
		},
	}

	err := compiler.Validate(ctx, DefinitionSchema(), wf)
	assert.NoError(t, err)
}

func TestCompiler_RejectsUnknownStepType(t *testing.T) {
	compiler := NewCompilerWithCache(64)
	ctx := context.Background()

	bad := map[string]interface{}{
		"consulting": []interface{}{
			map[string]interface{}{"id": "s1", "stepType": "telepathy"},
		},
	}

	err := compiler.Validate(ctx, DefinitionSchema(), bad)
	assert.Error(t, err)
}

func TestCompiler_RejectsMissingID(t *testing.T) {
	compiler := NewCompilerWithCache(64)
	ctx := context.Background()

	bad := map[string]interface{}{
		"consulting": []interface{}{
			map[string]interface{}{"stepType": "text"},
		},
	}

	err := compiler.Validate(ctx, DefinitionSchema(), bad)
	assert.Error(t, err)
}

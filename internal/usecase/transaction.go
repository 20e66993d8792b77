package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Transaction runs named steps in order. The first failing step stops the
// run and the later steps are skipped.
type Transaction struct {
	operations []Operation
	logger     *zap.SugaredLogger
}

type Operation struct {
	Name string
	Fn   func(context.Context) error
}

func NewTransaction(logger *zap.SugaredLogger) *Transaction {
	return &Transaction{logger: logger}
}

func (t *Transaction) AddOperation(name string, fn func(context.Context) error) {
	t.operations = append(t.operations, Operation{name, fn})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, op := range t.operations {
		if err := op.Fn(ctx); err != nil {
			t.logger.Warnw("⚠️ etapa falhou, etapas seguintes ignoradas",
				"operation", op.Name,
				"done", i,
				"skipped", len(t.operations)-i-1,
				"error", err,
			)
			return fmt.Errorf("operation '%s' failed: %w", op.Name, err)
		}
	}
	return nil
}

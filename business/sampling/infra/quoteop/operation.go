// Package quoteop turns sampler contract calls into position-aligned quote
// results and executes them in batches through Multicall3.
package quoteop

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dex-sampler/business/sampling/domain"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/logger"
)

// Shape selects how an operation's return data is decoded.
type Shape int

const (
	// ShapeAmounts decodes uint256[]; every output carries the operation's
	// fixed fill data.
	ShapeAmounts Shape = iota + 1
	// ShapePoolAmounts decodes (address pool, uint256[]).
	ShapePoolAmounts
	// ShapeDirectionalPoolAmounts decodes (bool isSellBase, address pool, uint256[]).
	ShapeDirectionalPoolAmounts
)

func (s Shape) String() string {
	switch s {
	case ShapeAmounts:
		return "amounts"
	case ShapePoolAmounts:
		return "pool_amounts"
	case ShapeDirectionalPoolAmounts:
		return "directional_pool_amounts"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

func (s Shape) outputs() int {
	switch s {
	case ShapeAmounts:
		return 1
	case ShapePoolAmounts:
		return 2
	case ShapeDirectionalPoolAmounts:
		return 3
	default:
		return 0
	}
}

// FillDataFunc builds fill data from a decoded pool address and direction.
// isSellBase is always false for ShapePoolAmounts.
type FillDataFunc func(pool common.Address, isSellBase bool) domain.FillData

// Params describes an operation.
type Params struct {
	Source domain.Source
	Method string
	Args   []any
	Shape  Shape

	// FillData is required for ShapeAmounts.
	FillData domain.FillData
	// FillDataFunc is required for the pool shapes.
	FillDataFunc FillDataFunc

	Logger logger.LoggerInterface
}

// Operation is one sampler contract call.
type Operation struct {
	source     domain.Source
	method     abi.Method
	args       []any
	shape      Shape
	fillData   domain.FillData
	fillDataFn FillDataFunc
	logger     logger.LoggerInterface
}

// New validates p against the sampler ABI.
func New(p Params) (*Operation, error) {
	method, ok := samplerABI().Methods[p.Method]
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unknown sampler method %q", p.Method)))
	}
	if p.Shape.outputs() == 0 {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("unknown decode shape %d", int(p.Shape))))
	}
	if len(method.Outputs) != p.Shape.outputs() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("%s returns %d values, shape %s expects %d",
				p.Method, len(method.Outputs), p.Shape, p.Shape.outputs())))
	}
	if p.Shape == ShapeAmounts && p.FillData == nil {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithContext("fill data is required for shape "+p.Shape.String()))
	}
	if p.Shape != ShapeAmounts && p.FillDataFunc == nil {
		return nil, apperror.New(apperror.CodeRequiredField,
			apperror.WithContext("fill data func is required for shape "+p.Shape.String()))
	}

	log := p.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Operation{
		source:     p.Source,
		method:     method,
		args:       p.Args,
		shape:      p.Shape,
		fillData:   p.FillData,
		fillDataFn: p.FillDataFunc,
		logger:     log,
	}, nil
}

// Source returns the venue the operation samples.
func (o *Operation) Source() domain.Source { return o.source }

// Method returns the sampler method name.
func (o *Operation) Method() string { return o.method.Name }

// Shape returns the decode shape.
func (o *Operation) Shape() Shape { return o.shape }

// FillData returns the fixed fill data, nil for the pool shapes.
func (o *Operation) FillData() domain.FillData { return o.fillData }

// Encode returns the ABI-encoded sampler call.
func (o *Operation) Encode() ([]byte, error) {
	data, err := samplerABI().Pack(o.method.Name, o.args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeEncodeFailed,
			apperror.WithCause(err),
			apperror.WithContext(o.label()))
	}
	return data, nil
}

// Decode turns successful return data into one result per sampled amount.
func (o *Operation) Decode(data []byte) ([]domain.QuoteResult, error) {
	values, err := o.method.Outputs.Unpack(data)
	if err != nil {
		return nil, o.decodeError(err)
	}
	if len(values) != o.shape.outputs() {
		return nil, o.decodeError(fmt.Errorf("got %d values", len(values)))
	}

	var (
		amountsValue any
		fillData     domain.FillData
	)

	switch o.shape {
	case ShapeAmounts:
		amountsValue, fillData = values[0], o.fillData
	case ShapePoolAmounts:
		pool, ok := values[0].(common.Address)
		if !ok {
			return nil, o.decodeError(fmt.Errorf("pool is %T", values[0]))
		}
		amountsValue, fillData = values[1], o.fillDataFn(pool, false)
	case ShapeDirectionalPoolAmounts:
		isSellBase, ok := values[0].(bool)
		if !ok {
			return nil, o.decodeError(fmt.Errorf("isSellBase is %T", values[0]))
		}
		pool, ok := values[1].(common.Address)
		if !ok {
			return nil, o.decodeError(fmt.Errorf("pool is %T", values[1]))
		}
		amountsValue, fillData = values[2], o.fillDataFn(pool, isSellBase)
	}

	amounts, ok := amountsValue.([]*big.Int)
	if !ok {
		return nil, o.decodeError(fmt.Errorf("amounts are %T", amountsValue))
	}

	results := make([]domain.QuoteResult, len(amounts))
	for i, a := range amounts {
		results[i] = domain.QuoteResult{Output: a, FillData: fillData}
	}
	return results, nil
}

// DecodeRevert logs the revert reason, if any can be extracted, and returns
// no results.
func (o *Operation) DecodeRevert(ctx context.Context, data []byte) []domain.QuoteResult {
	reason := "0x" + hex.EncodeToString(data)
	if msg, err := abi.UnpackRevert(data); err == nil {
		reason = msg
	}
	o.logger.Warn(ctx, "sampler operation reverted",
		"source", o.source.String(),
		"method", o.method.Name,
		"reason", reason)
	return []domain.QuoteResult{}
}

func (o *Operation) label() string {
	return o.source.String() + "." + o.method.Name
}

func (o *Operation) decodeError(cause error) error {
	return apperror.New(apperror.CodeDecodeFailed,
		apperror.WithCause(cause),
		apperror.WithContext(o.label()))
}

package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"savedanalysis/internal/schema"
)

const (
	SchemaServiceName = "savedanalysis.v1.SchemaService"

	SchemaServiceUpgradeProcedure       = "/" + SchemaServiceName + "/Upgrade"
	SchemaServiceIsPrevVersionProcedure = "/" + SchemaServiceName + "/IsPrevVersion"
)

// SchemaHandler exposes the document upgrader and version comparator over
// connect. Documents travel as google.protobuf.Struct since their shape is
// only known after probing them.
type SchemaHandler struct{}

func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

func (h *SchemaHandler) Upgrade(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	out, err := schema.Upgrade(req.Msg.AsMap())
	if err != nil {
		return nil, schemaError(err)
	}
	msg, err := structpb.NewStruct(out)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode document: %w", err))
	}
	return connect.NewResponse(msg), nil
}

func (h *SchemaHandler) IsPrevVersion(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[wrapperspb.BoolValue], error) {
	fields := req.Msg.GetFields()
	current := strings.TrimSpace(fields["current"].GetStringValue())
	benchmark := strings.TrimSpace(fields["benchmark"].GetStringValue())
	if current == "" || benchmark == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("current and benchmark are required"))
	}
	prev, err := schema.IsPrevVersion(current, benchmark)
	if err != nil {
		return nil, schemaError(err)
	}
	return connect.NewResponse(wrapperspb.Bool(prev)), nil
}

// NewSchemaServiceHandler mounts both procedures under one path prefix, the
// way generated connect handlers do.
func NewSchemaServiceHandler(h *SchemaHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	upgrade := connect.NewUnaryHandler(SchemaServiceUpgradeProcedure, h.Upgrade, opts...)
	isPrev := connect.NewUnaryHandler(SchemaServiceIsPrevVersionProcedure, h.IsPrevVersion, opts...)
	return "/" + SchemaServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SchemaServiceUpgradeProcedure:
			upgrade.ServeHTTP(w, r)
		case SchemaServiceIsPrevVersionProcedure:
			isPrev.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func schemaError(err error) error {
	switch {
	case errors.Is(err, schema.ErrMissingField), errors.Is(err, schema.ErrParse), errors.Is(err, schema.ErrShape):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

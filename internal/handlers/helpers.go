package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
	"github.com/asakaida/contentkit/internal/repositories"
	"github.com/asakaida/contentkit/internal/services"
	"github.com/asakaida/contentkit/internal/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// === Shared Helper Functions for all handlers ===

// requireString returns a non-empty string field of a request
func requireString(req *structpb.Struct, name string) (string, error) {
	value := optionalString(req, name)
	if value == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return value, nil
}

// optionalString returns a string field, accepting numbers for IDs
func optionalString(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	}
	return ""
}

// stringList returns a list field of IDs
func stringList(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", name)
	}

	ids := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		switch kind := item.GetKind().(type) {
		case *structpb.Value_StringValue:
			ids = append(ids, kind.StringValue)
		case *structpb.Value_NumberValue:
			ids = append(ids, strconv.FormatFloat(kind.NumberValue, 'f', -1, 64))
		default:
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string or number", name, i)
		}
	}
	return ids, nil
}

// toStruct converts a response map, normalizing slice and time types structpb does not accept
func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	normalized, ok := normalize(m).(map[string]interface{})
	if !ok {
		normalized = map[string]interface{}{}
	}
	s, err := structpb.NewStruct(normalized)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case entities.TextList:
		return normalize(val.Titles())
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return val.Format(time.RFC3339)
	case nil, string, bool, int, int32, int64, uint32, uint64, float32, float64:
		return val
	}
	return fmt.Sprintf("%v", v)
}

// relationToMap converts a relation for a response
func relationToMap(rel *entities.Relation) map[string]interface{} {
	return map[string]interface{}{
		"from_contenttype": rel.FromContenttype,
		"from_id":          rel.FromID,
		"to_contenttype":   rel.ToContenttype,
		"to_id":            rel.ToID,
		"sortorder":        rel.Sortorder,
	}
}

// toStatus maps service errors to gRPC status codes
func toStatus(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case services.IsNotFound(err), errors.Is(err, repositories.ErrContentTypesNotFound):
		return status.Errorf(codes.NotFound, "%s: %v", action, err)
	case errors.Is(err, services.ErrInvalidArgument),
		errors.Is(err, services.ErrInvalidContentTypes),
		errors.Is(err, fieldtypes.ErrConstraintViolation),
		errors.Is(err, fieldtypes.ErrInvalidValue),
		errors.Is(err, fieldtypes.ErrUnknownType):
		return status.Errorf(codes.InvalidArgument, "%s: %v", action, err)
	case errors.Is(err, storage.ErrConfiguration):
		return status.Errorf(codes.FailedPrecondition, "%s: %v", action, err)
	}
	return status.Errorf(codes.Internal, "%s: %v", action, err)
}

package handlers

import (
	"context"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// TypeInvalidator drops cached records of a content type
type TypeInvalidator interface {
	InvalidateContentType(ctx context.Context, contenttype string)
}

// ContentTypesHandler handles ContentTypes service gRPC requests
type ContentTypesHandler struct {
	contentTypes services.ContentTypeServiceInterface
	invalidator  TypeInvalidator
}

var _ ContentTypesServer = (*ContentTypesHandler)(nil)

// NewContentTypesHandler creates a new ContentTypesHandler
func NewContentTypesHandler(contentTypes services.ContentTypeServiceInterface, invalidator TypeInvalidator) *ContentTypesHandler {
	return &ContentTypesHandler{
		contentTypes: contentTypes,
		invalidator:  invalidator,
	}
}

// Write handles the Write RPC
// Request: {source}. Cached records of every type in the new set are dropped.
func (h *ContentTypesHandler) Write(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source, err := requireString(req, "source")
	if err != nil {
		return nil, err
	}

	version, err := h.contentTypes.WriteContentTypes(ctx, source)
	if err != nil {
		return nil, toStatus(err, "failed to write content types")
	}

	set, err := h.contentTypes.GetContentTypeSet(ctx, version)
	if err != nil {
		return nil, toStatus(err, "failed to read written content types")
	}
	if h.invalidator != nil {
		for _, ct := range set.Types {
			h.invalidator.InvalidateContentType(ctx, ct.Slug)
		}
	}

	return toStruct(map[string]interface{}{
		"version": version,
		"types":   typeSlugs(set),
	})
}

// Read handles the Read RPC
// Request: {version?}. Without a version the latest set is returned.
func (h *ContentTypesHandler) Read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var (
		set *entities.ContentTypeSet
		err error
	)
	if version := optionalString(req, "version"); version != "" {
		set, err = h.contentTypes.GetContentTypeSet(ctx, version)
	} else {
		set, err = h.contentTypes.ReadContentTypes(ctx)
	}
	if err != nil {
		return nil, toStatus(err, "failed to read content types")
	}
	if set == nil {
		return nil, status.Error(codes.NotFound, "no content types defined")
	}

	return toStruct(map[string]interface{}{
		"version":    set.Version,
		"source":     set.Source,
		"types":      typeSlugs(set),
		"created_at": set.CreatedAt,
	})
}

func typeSlugs(set *entities.ContentTypeSet) []string {
	slugs := make([]string, 0, len(set.Types))
	for _, ct := range set.Types {
		slugs = append(slugs, ct.Slug)
	}
	return slugs
}

// Validate handles the Validate RPC
// Request: {source}. Invalid definitions are reported in the response, not as an error.
func (h *ContentTypesHandler) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source, err := requireString(req, "source")
	if err != nil {
		return nil, err
	}

	if err := h.contentTypes.ValidateContentTypes(ctx, source); err != nil {
		return toStruct(map[string]interface{}{
			"valid":  false,
			"errors": []string{err.Error()},
		})
	}
	return toStruct(map[string]interface{}{
		"valid":  true,
		"errors": []string{},
	})
}

// Delete handles the Delete RPC
// Request: {version}
func (h *ContentTypesHandler) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	version, err := requireString(req, "version")
	if err != nil {
		return nil, err
	}

	if err := h.contentTypes.DeleteContentTypes(ctx, version); err != nil {
		return nil, toStatus(err, "failed to delete content types")
	}
	return toStruct(map[string]interface{}{"deleted": true})
}

package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/medical-docs/constants"
	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/index"
	"github.com/joseph-ayodele/medical-docs/internal/entity"
)

// Processor is the document pipeline served over gRPC.
type Processor interface {
	State() constants.ProcessorState
	ProcessDocument(ctx context.Context, doc entity.Document) (entity.StructuredRecord, error)
	IndexDocument(ctx context.Context, text string, record entity.StructuredRecord) (string, error)
	SearchMatches(ctx context.Context, query string, limit int) ([]index.Match, error)
	IndexSize(ctx context.Context) (int, error)
}

// Exporter renders search results as a workbook.
type Exporter interface {
	ExportSearchXLSX(ctx context.Context, query string, limit int) ([]byte, error)
}

// maxQueryChars bounds search and export queries.
const maxQueryChars = 2000

// DocumentService implements medocs.v1.DocumentProcessor.
type DocumentService struct {
	proc     Processor
	exporter Exporter
	logger   *slog.Logger
}

func NewDocumentService(proc Processor, exporter Exporter, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{proc: proc, exporter: exporter, logger: logger}
}

// ProcessDocument accepts {path | content_base64, mime_type, original_name, index}
// and returns {record, index_id}.
func (s *DocumentService) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doc := entity.Document{
		Path:         strings.TrimSpace(stringField(req, "path")),
		MimeType:     strings.TrimSpace(stringField(req, "mime_type")),
		OriginalName: stringField(req, "original_name"),
	}
	if enc := stringField(req, "content_base64"); enc != "" {
		b, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("content_base64: %v", err)
		}
		doc.Content = b
	}
	if doc.Path == "" && len(doc.Content) == 0 {
		return nil, common.InvalidArgumentError("path or content_base64 is required")
	}
	if doc.MimeType == "" {
		name := doc.OriginalName
		if name == "" {
			name = doc.Path
		}
		doc.MimeType = constants.MimeForPath(name)
	}

	rec, err := s.proc.ProcessDocument(ctx, doc)
	if err != nil {
		s.logger.Warn("grpc.process.failed", "request_id", common.RequestIDFromContext(ctx), "err", err)
		return nil, common.ToGRPCStatus(err)
	}
	recVal, err := recordToValue(rec)
	if err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	out := &structpb.Struct{Fields: map[string]*structpb.Value{
		"record":   recVal,
		"index_id": structpb.NewStringValue(""),
	}}
	if boolField(req, "index") {
		id, err := s.proc.IndexDocument(ctx, rec.OriginalText, rec)
		if err != nil {
			s.logger.Warn("grpc.index.failed", "request_id", common.RequestIDFromContext(ctx), "err", err)
			return nil, common.ToGRPCStatus(err)
		}
		out.Fields["index_id"] = structpb.NewStringValue(id)
	}
	return out, nil
}

// IndexDocument accepts {text, record} and returns {id}.
func (s *DocumentService) IndexDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := stringField(req, "text")
	if err := common.NewValidator().Field("text", text, common.Required).Err(); err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	rec, err := recordFromStruct(structField(req, "record"))
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	id, err := s.proc.IndexDocument(ctx, text, rec)
	if err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id": structpb.NewStringValue(id),
	}}, nil
}

// SearchSimilarDocuments accepts {query, limit} and returns {results: [{id, score, record}]}.
func (s *DocumentService) SearchSimilarDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, limit := stringField(req, "query"), int(numberField(req, "limit"))
	if err := validateQuery(query, limit); err != nil {
		return nil, err
	}
	matches, err := s.proc.SearchMatches(ctx, query, limit)
	if err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	results, err := matchesToValue(matches)
	if err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"results": results}}, nil
}

// Health returns {state, index_size}.
func (s *DocumentService) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	n, err := s.proc.IndexSize(ctx)
	if err != nil {
		return nil, common.ToGRPCStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"state":      structpb.NewStringValue(string(s.proc.State())),
		"index_size": structpb.NewNumberValue(float64(n)),
	}}, nil
}

// ExportRecords accepts {query, limit} and returns {xlsx_base64}.
func (s *DocumentService) ExportRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, common.ToGRPCStatus(common.NewAppError("UNIMPLEMENTED", "export is not configured", common.ErrInternal))
	}
	query, limit := stringField(req, "query"), int(numberField(req, "limit"))
	if err := validateQuery(query, limit); err != nil {
		return nil, err
	}
	b, err := s.exporter.ExportSearchXLSX(ctx, query, limit)
	if err != nil {
		s.logger.Warn("grpc.export.failed", "request_id", common.RequestIDFromContext(ctx), "err", err)
		return nil, common.ToGRPCStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"xlsx_base64": structpb.NewStringValue(base64.StdEncoding.EncodeToString(b)),
	}}, nil
}

// validateQuery checks {query, limit}; a zero limit selects the index default.
func validateQuery(query string, limit int) error {
	return common.ToGRPCStatus(common.NewValidator().
		Field("query", query, common.Required, common.MaxLength(maxQueryChars)).
		Field("limit", limit, common.NonNegative).
		Err())
}

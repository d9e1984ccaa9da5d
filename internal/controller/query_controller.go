package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"query-gateway/internal/model"
	"query-gateway/internal/service"
	"query-gateway/internal/utils"
	"query-gateway/internal/validation"
)

// maxBodyBytes bounds POST /query bodies. A maximal SQL text of 4-byte
// characters fits comfortably.
const maxBodyBytes = 1 << 20

type QueryController struct {
	queryService service.QueryService
	logger       *zap.Logger
}

func NewQueryController(queryService service.QueryService, logger *zap.Logger) *QueryController {
	return &QueryController{
		queryService: queryService,
		logger:       logger.Named("query_controller"),
	}
}

// ExecuteQuery godoc
// @Summary Execute a SQL query
// @Description Runs the SQL text verbatim as a warehouse query job and returns at most maxRows rows.
// @Tags query
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body model.QueryRequest true "Query execution request"
// @Success 200 {object} model.QueryResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 401 {object} response.ErrorEnvelope
// @Failure 429 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /query [post]
func (qc *QueryController) ExecuteQuery(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		message := "could not be read"
		if errors.As(err, &tooLarge) {
			message = fmt.Sprintf("must not exceed %d bytes", tooLarge.Limit)
		}
		respondError(c, qc.logger, utils.NewValidationError([]utils.Violation{{Field: "body", Message: message}}))
		return
	}

	req, err := validation.ValidateQueryRequest(body)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	resp, err := qc.queryService.ExecuteQuery(c.Request.Context(), req)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListCatalog godoc
// @Summary List the project catalog
// @Description Lists every table of every dataset in the project, flattened in dataset order.
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} model.CatalogResponse
// @Failure 401 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /query/catalog-datasets [get]
func (qc *QueryController) ListCatalog(c *gin.Context) {
	resp, err := qc.queryService.ListCatalog(c.Request.Context())
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListDatasets godoc
// @Summary List datasets
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} model.DatasetsResponse
// @Failure 401 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /query/datasets [get]
func (qc *QueryController) ListDatasets(c *gin.Context) {
	resp, err := qc.queryService.ListDatasets(c.Request.Context())
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTables godoc
// @Summary List tables of a dataset
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Param datasetId path string true "Dataset ID"
// @Success 200 {object} model.TablesResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 401 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /query/datasets/{datasetId}/tables [get]
func (qc *QueryController) ListTables(c *gin.Context) {
	var ref model.DatasetRef
	if !qc.bindPath(c, &ref) {
		return
	}

	resp, err := qc.queryService.ListTables(c.Request.Context(), ref.DatasetID)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTableSchema godoc
// @Summary Get a table schema
// @Tags catalog
// @Produce json
// @Security ApiKeyAuth
// @Param datasetId path string true "Dataset ID"
// @Param tableId path string true "Table ID"
// @Success 200 {object} model.TableSchema
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 401 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /query/tables/{datasetId}/{tableId}/schema [get]
func (qc *QueryController) GetTableSchema(c *gin.Context) {
	var ref model.TableRef
	if !qc.bindPath(c, &ref) {
		return
	}

	resp, err := qc.queryService.GetTableSchema(c.Request.Context(), ref.DatasetID, ref.TableID)
	if err != nil {
		respondError(c, qc.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (qc *QueryController) bindPath(c *gin.Context, params interface{}) bool {
	if err := c.ShouldBindUri(params); err != nil {
		respondError(c, qc.logger, utils.NewValidationError([]utils.Violation{{Field: "path", Message: err.Error()}}))
		return false
	}
	if err := validation.ValidatePathParams(params); err != nil {
		respondError(c, qc.logger, err)
		return false
	}
	return true
}

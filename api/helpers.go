package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/types"
	"github.com/cvctoken/cvct/util"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// decodeBody unmarshals the request body into dst, writing a coded error on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return false
	}
	return true
}

// urlParamID parses a hex-encoded identifier from the URL.
func urlParamID(w http.ResponseWriter, r *http.Request, name string) (types.HexBytes, bool) {
	var id types.HexBytes
	if err := id.SetString(chi.URLParam(r, name)); err != nil || len(id) == 0 {
		ErrMalformedParam.Withf("%s", name).Write(w)
		return nil, false
	}
	return id, true
}

// urlParamUint64 parses a decimal identifier from the URL.
func urlParamUint64(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("%s", name).Write(w)
		return 0, false
	}
	return v, true
}

// parseAddress decodes a 20-byte hex address from a request field.
func parseAddress(w http.ResponseWriter, field, value string) (common.Address, bool) {
	raw := util.TrimHex(value)
	if !common.IsHexAddress(raw) {
		ErrMalformedParam.Withf("%s", field).Write(w)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

package echoapi

import "github.com/trezcool/darasa/core"

// DataResponse is the success envelope. Every 2xx body is {"data": ...},
// with an optional "meta" page descriptor on paginated lists.
type DataResponse struct {
	Data interface{}    `json:"data"`
	Meta *core.PageMeta `json:"meta,omitempty"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/internal/types"
)

// GetShare 分享元数据；download=true 时传输内容并计数.
//
//	@Summary		访问分享
//	@Description	download=false 只返回元数据，口令不参与判定；download=true 时校验口令并下载
//	@Tags			分享
//	@Produce		json,octet-stream
//	@Param			id			path		string	true	"分享 ID"
//	@Param			download	query		bool	false	"是否下载内容"
//	@Param			password	query		string	false	"分享口令"
//	@Success		200			{object}	types.ShareInfoResponse
//	@Failure		401			{object}	types.ErrorResponse	"需要口令或口令错误"
//	@Failure		404			{object}	types.ErrorResponse
//	@Failure		410			{object}	types.ErrorResponse	"已过期；次数用尽时仅下载返回 410"
//	@Router			/api/share/{id} [get]
func GetShare(c *gin.Context) {
	var q types.ShareQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	if q.Download {
		download(c, q.Password)
		return
	}

	rec, err := services(c).Shares.ShareInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewShareInfo(rec))
}

// ShortLink /s/:id 直接下载，二维码指向这里. 有口令时通过 ?password= 提供.
func ShortLink(c *gin.Context) {
	var password *string
	if pw, ok := c.GetQuery("password"); ok {
		password = &pw
	}

	download(c, password)
}

func download(c *gin.Context, password *string) {
	dl, err := services(c).Shares.OpenDownload(c.Request.Context(), c.Param("id"), password)
	if err != nil {
		respondError(c, err)
		return
	}

	sendDownload(c, dl)
}

// VerifySharePassword 校验分享口令.
//
//	@Summary	校验分享口令
//	@Tags		分享
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"分享 ID"
//	@Param		body	body		types.VerifyRequest	true	"口令"
//	@Success	200		{object}	types.VerifyResponse
//	@Failure	401		{object}	types.VerifyResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/share/{id}/verify [post]
func VerifySharePassword(c *gin.Context) {
	var req types.VerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	valid, err := services(c).Shares.VerifyPassword(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !valid {
		status = http.StatusUnauthorized
	}

	c.JSON(status, types.VerifyResponse{Valid: valid})
}

// ShareQRCode 分享链接的二维码 PNG.
//
//	@Summary	分享二维码
//	@Tags		分享
//	@Produce	png
//	@Param		id	path	string	true	"分享 ID"
//	@Success	200
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/share/{id}/qrcode [get]
func ShareQRCode(c *gin.Context) {
	png, err := services(c).QR.PNG(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

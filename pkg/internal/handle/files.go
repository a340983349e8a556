package handle

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/types"
	"github.com/yeisme/filedrop/pkg/rule"
)

// multipartOverhead 请求体上限在文件上限之外额外允许的字节数（边界与文本字段）.
const multipartOverhead = 1 << 20

// optionalPositive 解析可选的正整数表单字段. 空值或 0 表示不限制.
func optionalPositive(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", service.ErrValidation, name)
	}

	if n == 0 {
		return nil, nil
	}

	return &n, nil
}

// Upload 接收 multipart 上传：file 字段为内容，可选 password、expiresIn（天）、maxDownloads.
//
//	@Summary	上传文件
//	@Tags		文件
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file			formData	file	true	"文件"
//	@Param		password		formData	string	false	"分享口令"
//	@Param		expiresIn		formData	int		false	"有效天数"
//	@Param		maxDownloads	formData	int		false	"最大下载次数"
//	@Success	200				{object}	types.UploadResponse
//	@Failure	400				{object}	types.ErrorResponse
//	@Failure	401				{object}	types.ErrorResponse
//	@Router		/api/upload [post]
func Upload(c *gin.Context) {
	svc := services(c)

	if limit := svc.Files.MaxUpload(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("%w: no file provided", service.ErrValidation))
		return
	}

	expires, err := optionalPositive("expiresIn", c.PostForm("expiresIn"))
	if err != nil {
		respondError(c, err)
		return
	}

	maxDownloads, err := optionalPositive("maxDownloads", c.PostForm("maxDownloads"))
	if err != nil {
		respondError(c, err)
		return
	}

	var password *string
	if pw := c.PostForm("password"); pw != "" {
		password = &pw
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	who := identity(c)

	res, err := svc.Files.Upload(c.Request.Context(), service.UploadInput{
		Name:          fh.Filename,
		Size:          fh.Size,
		Body:          f,
		Password:      password,
		ExpiresInDays: expires,
		MaxDownloads:  maxDownloads,
		Owner:         &who,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	svc.Stats.Invalidate(c.Request.Context())

	c.JSON(http.StatusOK, types.UploadResponse{
		Success:        true,
		FileView:       types.NewFileView(res.Record, svc.QR.ShareURL(res.Record.ID)),
		StoragePercent: res.Quota.Percent,
	})
}

// ListFiles 管理员看到全部文件，普通用户只看到自己的.
//
//	@Summary	文件列表
//	@Tags		文件
//	@Produce	json
//	@Success	200	{object}	types.FilesResponse
//	@Failure	401	{object}	types.ErrorResponse
//	@Router		/api/files [get]
func ListFiles(c *gin.Context) {
	svc := services(c)

	recs, err := svc.Files.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]types.FileView, 0, len(recs))
	for i := range recs {
		views = append(views, types.NewFileView(&recs[i], svc.QR.ShareURL(recs[i].ID)))
	}

	c.JSON(http.StatusOK, types.FilesResponse{Files: views})
}

func storageKeyParam(c *gin.Context) (string, bool) {
	key := c.Param("storageKey")
	if err := rule.ValidateVar(key, "required,storagekey"); err != nil {
		respondError(c, fmt.Errorf("%w: invalid file name", service.ErrValidation))
		return "", false
	}

	return key, true
}

// DownloadFile 所有者或管理员按存储名下载，计入下载次数.
//
//	@Summary	下载自己的文件
//	@Tags		文件
//	@Produce	octet-stream
//	@Param		storageKey	path	string	true	"存储名"
//	@Success	200
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/files/{storageKey} [get]
func DownloadFile(c *gin.Context) {
	key, ok := storageKeyParam(c)
	if !ok {
		return
	}

	dl, err := services(c).Files.Download(c.Request.Context(), key, identity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	sendDownload(c, dl)
}

// DeleteFile 所有者或管理员删除文件.
//
//	@Summary	删除文件
//	@Tags		文件
//	@Produce	json
//	@Param		storageKey	path		string	true	"存储名"
//	@Success	200			{object}	types.SuccessResponse
//	@Failure	404			{object}	types.ErrorResponse
//	@Router		/api/files/{storageKey} [delete]
func DeleteFile(c *gin.Context) {
	key, ok := storageKeyParam(c)
	if !ok {
		return
	}

	svc := services(c)

	if err := svc.Files.Delete(c.Request.Context(), key, identity(c)); err != nil {
		respondError(c, err)
		return
	}

	svc.Stats.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// sendDownload 把已计数的下载流写给客户端，负责关闭 Body.
func sendDownload(c *gin.Context, dl *service.Download) {
	defer dl.Body.Close()

	rec := dl.Record
	c.DataFromReader(http.StatusOK, rec.Size, contentType(rec), dl.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalName}),
		"Cache-Control":       "no-store",
	})
}

func contentType(rec *model.FileRecord) string {
	if rec.MimeType == "" {
		return "application/octet-stream"
	}

	return rec.MimeType
}

// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/filedrop/pkg/cmd"
)

//	@title			FileDrop API
//	@version		1.0
//	@description	FileDrop 是一个自托管的文件投递服务：上传文件，生成带口令、有效期与下载次数限制的分享链接。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

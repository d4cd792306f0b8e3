package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: "ok", Data: data})
}

func created(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Msg: msg, Data: data})
}

func accepted(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusAccepted, Response{Code: http.StatusAccepted, Msg: msg, Data: data})
}

// fail writes an error envelope. data may carry notices for the page.
func fail(c *gin.Context, status int, msg string, data interface{}) {
	c.AbortWithStatusJSON(status, Response{Code: status, Msg: msg, Data: data})
}

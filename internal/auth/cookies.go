package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cookie 名はトークンの種類です。値がトークン本体になります。
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	cookiePath = "/"
)

func (h *Handler) setSessionCookies(c *gin.Context, accessToken, refreshToken string) {
	setCookie(c, AccessTokenCookie, accessToken, 0, h.opts.CookieSecure)
	setCookie(c, RefreshTokenCookie, refreshToken, 0, h.opts.CookieSecure)
}

// clearSessionCookies は発行時と同じ属性で MaxAge=-1 の Cookie を送ります。
func (h *Handler) clearSessionCookies(c *gin.Context) {
	setCookie(c, AccessTokenCookie, "", -1, h.opts.CookieSecure)
	setCookie(c, RefreshTokenCookie, "", -1, h.opts.CookieSecure)
}

func setCookie(c *gin.Context, name, value string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, cookiePath, "", secure, true)
}

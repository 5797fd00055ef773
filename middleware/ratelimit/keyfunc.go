package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient é a chave quando nenhum header de endereço está presente.
const UnknownClient = "unknown"

type KeyFunc func(r *http.Request) string

// DefaultHeaders é a cadeia padrão de headers com o IP do cliente.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For"}

// ClientKeyFunc retorna o primeiro header presente da cadeia. Headers com lista
// (X-Forwarded-For) usam o primeiro IP, que é o cliente original.
//
// Sem header, cai em RemoteAddr se useRemoteAddr, senão em "unknown".
func ClientKeyFunc(headers []string, useRemoteAddr bool) KeyFunc {
	if headers == nil {
		headers = DefaultHeaders
	}
	return func(r *http.Request) string {
		for _, h := range headers {
			v := r.Header.Get(h)
			if v == "" {
				continue
			}
			first, _, _ := strings.Cut(v, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}

		if useRemoteAddr {
			host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
			if err == nil && host != "" {
				return host
			}
			if r.RemoteAddr != "" {
				return r.RemoteAddr
			}
		}
		return UnknownClient
	}
}

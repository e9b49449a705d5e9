// Package security builds TLS client settings for the outbound connections
// of the service: the identity provider client and Redis.
//
//	http:
//	  tls:
//	    ca_file: /etc/authflow/egress-ca.pem
//	redis:
//	  tls:
//	    enabled: true
//	    server_name: cache.internal
package security

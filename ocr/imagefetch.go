package ocr

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxImageBytes caps fetched image payloads.
const maxImageBytes = 10 * 1024 * 1024

// imageFetcher retrieves image bytes with a Chrome TLS fingerprint (utls),
// since image CDNs behind the same defenses as the scraped pages fingerprint
// plain Go TLS clients.
type imageFetcher struct {
	defaultProxy string
}

func newImageFetcher(defaultProxy string) *imageFetcher {
	return &imageFetcher{defaultProxy: defaultProxy}
}

// fetch downloads the image at imageURL.
func (f *imageFetcher) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	proxyAddr := f.defaultProxy

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, proxyAddr)
		},
	}
	if proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("imagefetch: HTTP %d for %s", resp.StatusCode, imageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("imagefetch: read body: %w", err)
	}
	return body, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	rawConn, err := dialRaw(ctx, network, addr, proxyAddr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialRaw opens the TCP connection to addr, tunneling through a SOCKS5 proxy
// (with full CONNECT negotiation) when one is configured.
func dialRaw(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	dialer := &net.Dialer{}

	if proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			var auth *proxy.Auth
			if user := proxyURL.User; user != nil {
				password, _ := user.Password()
				auth = &proxy.Auth{User: user.Username(), Password: password}
			}
			socksDialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, dialer)
			if err != nil {
				return nil, fmt.Errorf("socks5 dialer: %w", err)
			}
			if cd, ok := socksDialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return socksDialer.Dial(network, addr)
		}
	}

	return dialer.DialContext(ctx, network, addr)
}

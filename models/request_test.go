package models

import (
	"reflect"
	"testing"
)

func TestScrapeRequest_Targets(t *testing.T) {
	tests := []struct {
		name string
		req  ScrapeRequest
		want []ScrapeTarget
	}{
		{
			name: "single url",
			req:  ScrapeRequest{URL: "https://a.test"},
			want: []ScrapeTarget{{URL: "https://a.test"}},
		},
		{
			name: "urls only",
			req:  ScrapeRequest{URLs: []string{"https://a.test", "https://b.test"}},
			want: []ScrapeTarget{{URL: "https://a.test"}, {URL: "https://b.test"}},
		},
		{
			name: "url and urls combine in order",
			req:  ScrapeRequest{URL: "https://a.test", URLs: []string{"https://b.test"}},
			want: []ScrapeTarget{{URL: "https://a.test"}, {URL: "https://b.test"}},
		},
		{
			name: "empty strings skipped",
			req:  ScrapeRequest{URLs: []string{"", "https://a.test", ""}},
			want: []ScrapeTarget{{URL: "https://a.test"}},
		},
		{
			name: "proxy propagates to every target",
			req:  ScrapeRequest{URL: "https://a.test", URLs: []string{"https://b.test"}, Proxy: "socks5://p:1080"},
			want: []ScrapeTarget{
				{URL: "https://a.test", Proxy: "socks5://p:1080"},
				{URL: "https://b.test", Proxy: "socks5://p:1080"},
			},
		},
		{
			name: "empty request",
			req:  ScrapeRequest{},
			want: []ScrapeTarget{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Targets()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Targets() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

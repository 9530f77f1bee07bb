package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/makers-cave/BatchArtPro/binding"
)

// 远程接口响应体上限 64MB
const maxAPIBytes = 64 << 20

// DefaultAPITimeout 是抓取远程数据源的默认超时。
const DefaultAPITimeout = 30 * time.Second

// FetchAPI 抓取远程 JSON 接口并解析为数据源行。client 为空时
// 使用带默认超时的客户端。
func FetchAPI(ctx context.Context, client *http.Client, url string) ([]string, []binding.Row, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultAPITimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("请求数据接口 %s 失败: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("数据接口 %s 返回 HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据接口响应失败: %w", err)
	}
	return ParseJSON(body)
}

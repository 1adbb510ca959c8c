// cardimport 从本地文本文件批量导入卡密。
// 文件按行归一化后经管理端 HTTP API 顺序分批提交，终端实时显示进度；
// 任一批次失败立即中止，已提交的批次不回滚。
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kamishop/internal/ingest"

	"github.com/schollz/progressbar/v3"
)

const defaultRequestTimeout = 30 * time.Second

type options struct {
	serverURL string
	productID uint64
	filePath  string
	username  string
	password  string
	token     string
	batchSize int
	timeout   time.Duration
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "导入失败: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	var productID uint64

	flag.StringVar(&opts.serverURL, "server", "http://127.0.0.1:8080", "API 服务地址")
	flag.Uint64Var(&productID, "product", 0, "目标商品 ID（必填）")
	flag.StringVar(&opts.filePath, "file", "", "卡密文本文件路径，每行一条（必填）")
	flag.StringVar(&opts.username, "username", "", "管理员账号（未提供 -token 时必填）")
	flag.StringVar(&opts.password, "password", "", "管理员密码（未提供 -token 时必填）")
	flag.StringVar(&opts.token, "token", "", "已签发的管理端 JWT，提供后跳过登录")
	flag.IntVar(&opts.batchSize, "batch-size", ingest.DefaultBatchSize, "单批提交的卡密条数")
	flag.DurationVar(&opts.timeout, "timeout", defaultRequestTimeout, "单次请求超时时间")
	flag.Parse()

	opts.productID = productID
	opts.serverURL = strings.TrimRight(strings.TrimSpace(opts.serverURL), "/")

	if opts.serverURL == "" {
		return opts, errors.New("-server 不能为空")
	}
	if opts.productID == 0 {
		return opts, errors.New("-product 必填且必须大于 0")
	}
	if strings.TrimSpace(opts.filePath) == "" {
		return opts, errors.New("-file 必填")
	}
	if opts.token == "" && (opts.username == "" || opts.password == "") {
		return opts, errors.New("需要 -token，或同时提供 -username 与 -password")
	}
	if opts.batchSize <= 0 {
		opts.batchSize = ingest.DefaultBatchSize
	}
	if opts.timeout <= 0 {
		opts.timeout = defaultRequestTimeout
	}
	return opts, nil
}

func run(opts options) error {
	raw, err := os.ReadFile(opts.filePath)
	if err != nil {
		return fmt.Errorf("读取卡密文件失败: %w", err)
	}

	// 只按换行拆分，卡密里的逗号等分隔符原样保留；为空时不发起任何请求
	keys := ingest.Normalize(string(raw))
	if len(keys) == 0 {
		return ingest.ErrNoCards
	}

	// Ctrl-C 在批次间生效，已发出的批次会执行完
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := &apiClient{
		baseURL: opts.serverURL,
		token:   opts.token,
		client:  &http.Client{Timeout: opts.timeout},
	}
	if client.token == "" {
		if err := client.login(ctx, opts.username, opts.password); err != nil {
			return fmt.Errorf("登录失败: %w", err)
		}
	}

	batches := (len(keys) + opts.batchSize - 1) / opts.batchSize
	fmt.Printf("共解析到 %d 条卡密，按每批 %d 条分 %d 批提交\n", len(keys), opts.batchSize, batches)

	bar := progressbar.NewOptions(len(keys),
		progressbar.OptionSetDescription("导入卡密"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)

	coordinator := ingest.NewCoordinator(client, ingest.Options{
		BatchSize: opts.batchSize,
		OnProgress: func(p ingest.Progress) {
			_ = bar.Set(p.Processed)
		},
	})

	productID := strconv.FormatUint(opts.productID, 10)
	success, err := coordinator.Run(ctx, productID, keys)
	if err != nil {
		_ = bar.Clear()
		return err
	}

	_ = bar.Finish()
	fmt.Printf("导入完成: 成功写入 %d 条卡密\n", success)
	return nil
}

// apiEnvelope 服务端统一响应包装
type apiEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

// apiClient 管理端 API 客户端，实现 ingest.Submitter。
type apiClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// login 管理员登录并持有返回的 JWT
func (c *apiClient) login(ctx context.Context, username, password string) error {
	payload := map[string]interface{}{
		"username": username,
		"password": password,
	}
	data, err := c.postJSON(ctx, "/api/v1/admin/login", payload)
	if err != nil {
		return err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("解析登录响应失败: %w", err)
	}
	if result.Token == "" {
		return errors.New("登录响应缺少 token")
	}
	c.token = result.Token
	return nil
}

// SubmitBatch 提交一批卡密，返回实际写入数量
func (c *apiClient) SubmitBatch(ctx context.Context, productID string, keys []string) (int, error) {
	id, err := strconv.ParseUint(productID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("无效的商品 ID %q: %w", productID, err)
	}

	payload := map[string]interface{}{
		"product_id": id,
		"keys":       keys,
	}
	data, err := c.postJSON(ctx, "/api/v1/admin/card-keys/batch", payload)
	if err != nil {
		return 0, err
	}

	var result struct {
		Created int `json:"created"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("解析批量写入响应失败: %w", err)
	}
	return result.Created, nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if envelope.StatusCode != 0 {
		return nil, fmt.Errorf("服务端返回错误 %d: %s", envelope.StatusCode, envelope.Msg)
	}
	return envelope.Data, nil
}

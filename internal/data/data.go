package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iWorld-y/report_forge/pkg/config"
)

// Data 参照表数据源。client 为 nil 时表示未配置 MongoDB，
// 查询层会改用内置 fallback 数据，保证流程可离线跑通。
type Data struct {
	client *mongo.Client
	cfg    config.MongoConfig
}

func NewData(cfg config.MongoConfig, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if !cfg.Configured() {
		helper.Info("未配置 MongoDB 连接，参照表查询使用内置 fallback 数据")
		return &Data{cfg: cfg}, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("连接 MongoDB 失败: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("MongoDB ping 失败: %w", err)
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		_ = client.Disconnect(context.Background())
	}
	return &Data{client: client, cfg: cfg}, cleanup, nil
}

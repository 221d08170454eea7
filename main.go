package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"matchd/server"
)

func init() {
	viper.SetConfigName("matchd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("listener.addr", ":8080")

	viper.SetDefault("log.file", "matchd.log")
	viper.SetDefault("log.level", "debug")

	viper.SetDefault("match.seed", 0)
	viper.SetDefault("match.capacity", server.DefaultCapacity)
	viper.SetDefault("match.target_population", 1)
	viper.SetDefault("match.tick_interval_us", server.DefaultTickInterval.Microseconds())
	viper.SetDefault("match.clock_sync_probes", server.DefaultClockSyncProbes)
	viper.SetDefault("match.serialization", "json")
	viper.SetDefault("match.send_start_ack", false)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
		// 无配置文件时按默认值运行
	}
}

// matchd 入口：启动 HTTP + WebSocket 服务，并装配比赛管理器
func main() {
	var addr string
	flag.StringVar(&addr, "addr", viper.GetString("listener.addr"), "server listen address, e.g. :8080")
	flag.Parse()

	// 第三方 zap 日志写入文件（带滚动）
	if err := server.InitLogger(viper.GetString("log.file"), viper.GetString("log.level")); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	ser, err := server.ParseSerialization(viper.GetString("match.serialization"))
	if err != nil {
		server.Log.Fatalf("config: %v", err)
	}
	defaults := server.MatchConfig{
		Seed:             viper.GetUint32("match.seed"),
		Capacity:         viper.GetInt("match.capacity"),
		TargetPopulation: viper.GetInt("match.target_population"),
		TickInterval:     time.Duration(viper.GetInt64("match.tick_interval_us")) * time.Microsecond,
		ClockSyncProbes:  viper.GetInt("match.clock_sync_probes"),
		SerType:          ser,
		SendStartAck:     viper.GetBool("match.send_start_ack"),
	}
	if err := defaults.Validate(); err != nil {
		server.Log.Fatalf("config: %v", err)
	}
	server.GetMatchManager().SetDefaults(defaults)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig)
	mux.HandleFunc("/metrics", server.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		server.Log.Infof("matchd listening on %s target_population=%d", addr, defaults.TargetPopulation)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

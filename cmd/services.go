package cmd

import (
	"AirgapFM/cache"
	"AirgapFM/db"
	"AirgapFM/logger"
	"AirgapFM/model"
	"AirgapFM/repository"
	"AirgapFM/storage"
)

// openHistory 启用时连接请求历史数据库
// 返回的 done 不会为 nil
func openHistory() (repo repository.HistoryRepository, done func(), err error) {
	done = func() {}
	if !cfg.HistoryEnabled {
		return nil, done, nil
	}
	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, done, err
	}
	done = func() {
		if err := db.CloseGormDB(); err != nil {
			logger.Warn("failed to close database", logger.ErrorField(err))
		}
	}
	if err := db.AutoMigrateModels(&model.RequestHistory{}); err != nil {
		done()
		return nil, func() {}, err
	}
	return repository.NewGormHistoryRepository(db.GormDB), done, nil
}

// openSessionCache 启用时连接 Redis 会话缓存
func openSessionCache() (sc *cache.SessionCache, done func(), err error) {
	done = func() {}
	if !cfg.RedisEnabled {
		return nil, done, nil
	}
	if err := cache.ConnectRedis(cfg); err != nil {
		return nil, done, err
	}
	done = func() {
		if err := cache.CloseRedis(); err != nil {
			logger.Warn("failed to close Redis", logger.ErrorField(err))
		}
	}
	return cache.NewSessionCache(), done, nil
}

// openArchive 启用时连接 MinIO 歌单归档
func openArchive() (*storage.PlaylistArchive, error) {
	if !cfg.MinioEnabled {
		return nil, nil
	}
	return storage.NewPlaylistArchive(cfg)
}

// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// ConnectRedis opens a client for redis.url and checks it with a PING.
func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	opt, err := redis.ParseURL(viper.GetString("redis.url"))
	if err != nil {
		log.Error().Err(err).Msg("could not parse redis URL")
		return nil, err
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("Addr", opt.Addr).Msg("could not ping redis")
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

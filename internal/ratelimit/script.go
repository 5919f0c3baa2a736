package ratelimit

// luaSlidingWindow mirrors the MemoryStore decision math on a sorted set
// per key: prune, append, trim to the bucket cap, then decide.
const luaSlidingWindow = `
-- KEYS[1] = zset holding hit timestamps for one client key
-- ARGV[1] = now_ms
-- ARGV[2] = window_ms
-- ARGV[3] = limit
-- ARGV[4] = bucket_cap
-- ARGV[5] = ttl_ms

local zkey      = KEYS[1]
local now       = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit     = tonumber(ARGV[3])
local cap       = tonumber(ARGV[4])
local ttl       = tonumber(ARGV[5])

-- drop hits that left the window
redis.call("ZREMRANGEBYSCORE", zkey, 0, now - window_ms - 1)

-- record this hit; member is unique per (timestamp, position)
local count = tonumber(redis.call("ZCARD", zkey))
local member = string.format("%d-%d", now, count)
redis.call("ZADD", zkey, now, member)
count = count + 1

-- trim oldest excess beyond the bucket cap
if count > cap then
  redis.call("ZREMRANGEBYRANK", zkey, 0, count - cap - 1)
  count = cap
end
redis.call("PEXPIRE", zkey, ttl)

local allowed = 0
local remaining = 0
if count <= limit then
  allowed = 1
  remaining = limit - count
end

local reset_ms = 0
local oldest = redis.call("ZRANGE", zkey, 0, 0, "WITHSCORES")
if oldest and #oldest >= 2 then
  reset_ms = tonumber(oldest[2]) + window_ms - now
  if reset_ms < 0 then reset_ms = 0 end
end

return {allowed, remaining, reset_ms}
`

package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/noble-hunt/axle/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"github.com/ipinfo/go/v2/ipinfo"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const locationCacheExpire = 24 * time.Hour

// Location is a user's resolved geo position, used to fetch the
// matching solar / weather / air quality data.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Timezone  string  `json:"timezone"`
}

// used for development
var devLocation = Location{
	Latitude:  52.52,
	Longitude: 13.405,
	City:      "Berlin",
	Timezone:  "Europe/Berlin",
}

// Resolver resolves an IP address to a geo location via the ipinfo
// API, with a redis cache in front to spare the free-plan quota.
type Resolver struct {
	ipinfoClient *ipinfo.Client
	redisClient  *redis.Client
}

func NewResolver(ipinfoClient *ipinfo.Client, redisClient *redis.Client) *Resolver {
	return &Resolver{
		ipinfoClient: ipinfoClient,
		redisClient:  redisClient,
	}
}

func (res *Resolver) ResolveIP(ctx context.Context, userIp string) (*Location, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "environment.resolver.resolveIP")
	defer span.End()
	span.SetAttributes(attribute.String("user.ip", userIp))

	if userIp == "localhost" || userIp == "127.0.0.1" || userIp == "::1" {
		log.Debugf("resolve location: returning development localhost / Berlin")
		return &devLocation, nil
	}

	locationKey := fmt.Sprintf("location::%s", userIp)
	cmd := res.redisClient.Get(ctx, locationKey)
	if locationBytes := cmd.Val(); locationBytes != "" {
		span.SetAttributes(attribute.Bool("location.from-cache", true))
		var location Location
		if err := json.Unmarshal([]byte(locationBytes), &location); err == nil {
			return &location, nil
		} else {
			log.Errorf("failed to unmarshal cached location for %s: %s", userIp, err)
			// fall through to the ipinfo api
		}
	} else {
		span.SetAttributes(attribute.Bool("location.from-cache", false))
	}

	ipInfo, err := res.ipinfoClient.GetIPInfo(net.ParseIP(userIp))
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("get ip info: %s", err))
		return nil, fmt.Errorf("get ip info: %w", err)
	}

	latitude, longitude, err := parseLatLon(ipInfo.Location)
	if err != nil {
		return nil, fmt.Errorf("parse ip info location %q: %w", ipInfo.Location, err)
	}

	location := &Location{
		Latitude:  latitude,
		Longitude: longitude,
		City:      ipInfo.City,
		Timezone:  ipInfo.Timezone,
	}

	locationBytes, err := json.Marshal(location)
	if err != nil {
		return nil, fmt.Errorf("marshal location: %w", err)
	}
	if err := res.redisClient.Set(ctx, locationKey, locationBytes, locationCacheExpire).Err(); err != nil {
		log.Errorf("failed to cache location in redis for %s: %s", userIp, err)
	}

	return location, nil
}

// parseLatLon splits an ipinfo "lat,lon" location string.
func parseLatLon(location string) (float64, float64, error) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected lat,lon - got %d parts", len(parts))
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return latitude, longitude, nil
}

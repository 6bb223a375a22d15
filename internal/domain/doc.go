// Package domain normalizes hourly weather forecasts for a 24-hour clock face.
//
// # Data Source
//
// The default provider is the Open-Meteo forecast API, queried with
// timezone=UTC, timeformat=unixtime and windspeed_unit=ms. The body carries
// parallel hourly arrays (time, temperature_2m, precipitation, weathercode,
// windspeed_10m) and daily sunrise/sunset arrays, all as unix seconds. SMHI's
// point forecast is supported as an alternative; it has no sun times, so its
// adapter computes them per covered day.
//
// # Keys
//
// Hourly records are keyed by [HourKey], the unix second of the hour. Sunrise and
// sunset are keyed by [NaiveDate], the calendar day of the timestamp in the
// ingestor's reference zone (UTC unless configured).
//
// # Day and Night
//
// An hour is daytime when it falls strictly between its own day's sunrise and
// sunset, using only the sun times carried by the same response. Hours whose day
// has no sunrise or sunset in that response are dropped, never guessed.
//
// # Categories
//
// WMO codes map to a closed [Category] set:
//
//	0       clear
//	1       mainlyClear
//	2       lightCloud
//	3       cloud
//	45-48   fog
//	51-67   rain      (drizzle, freezing drizzle, rain, freezing rain)
//	71-75   snow
//	80-86   rain      (rain and snow showers)
//	95-99   lightning
//	other   unknown
//
// Wind above 20 m/s overrides every code with wind.
//
// # Precipitation Intensity
//
// Millimeters per hour are bucketed by an [IntensityTable]. See
// [DefaultIntensityTable] for the bands used unless INTENSITY_THRESHOLDS is set.
//
// # Refresh
//
// A fetch is issued only when the request URL differs from the last one and more
// than an hour has passed. The state is recorded when the fetch is dispatched.
package domain

// Package goes reads the NOAA GOES-16 ABI image archive.
//
// The archive is a plain HTML directory listing per sector and band:
//
//	https://cdn.star.nesdis.noaa.gov/GOES16/ABI/CONUS/GEOCOLOR/
//
// Frame names start with a YYYYDDDHHMM timestamp (year, day of year, hour,
// minute) and carry the image size as their second-to-last token:
//
//	20240751201_GOES16-ABI-CONUS-GEOCOLOR-1250x750.jpg
//
// Select keeps the names whose timestamp lies strictly inside a Window and
// whose size token matches. Sample thins the selection to every n-th frame.
// Both preserve listing order, which the archive keeps chronological.
package goes

// Package useragent tells browsers apart from crawlers and link unfurlers.
//
// Attribution must only run for people: a chat app expanding a shared
// referral link, or a search engine crawling it, would otherwise register a
// click. Parse classifies a User-Agent header; Automated is true for bots and
// preview fetchers.
package useragent

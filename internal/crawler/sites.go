package crawler

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var slrclubCommentRe = regexp.MustCompile(`\[(\d+)\]`)

// SiteConfigs returns the declarative configuration for every supported
// board. Boards with Pages > 1 paginate up to that ceiling with the given
// inter-page delay; the rest expose a single hot-post listing.
func SiteConfigs() []SiteConfig {
	return []SiteConfig{
		{
			Key:         "clien",
			DisplayName: "클리앙",
			BaseURL:     "https://www.clien.net",
			BoardURL:    "https://www.clien.net/service/board/park",
			Paging:      Paging{Mode: PagingOffset, Param: "po", PageSize: 20},
			Pages:       5,
			Delay:       time.Second,
			Selectors: Selectors{
				Row:       "div.list_item",
				Title:     "span.subject_fixed",
				Link:      "a.list_subject",
				Author:    "div.list_author span.nickname",
				Views:     "div.list_hit",
				Comments:  "span.list_reply",
				Likes:     "div.list_symph",
				Thumbnail: "img",
				Time:      "div.list_time",
			},
		},
		{
			Key:         "theqoo",
			DisplayName: "더쿠",
			BaseURL:     "https://theqoo.net",
			BoardURL:    "https://theqoo.net/hot",
			Selectors: Selectors{
				Row:         "table.bd_lst tbody tr",
				SkipClasses: []string{"notice"},
				Title:       "td.title > a",
				Link:        "td.title > a",
				Views:       "td.m_no",
				Comments:    "a.replyNum",
				Category:    "td.cate span",
				Time:        "td.time",
			},
			DateFormats: []string{"06.01.02"},
		},
		{
			Key:         "ruliweb",
			DisplayName: "루리웹",
			BaseURL:     "https://bbs.ruliweb.com",
			BoardURL:    "https://bbs.ruliweb.com/community/board/300143",
			Paging:      Paging{Mode: PagingQuery, Param: "page", BareFirst: true},
			Pages:       5,
			Delay:       time.Second,
			Selectors: Selectors{
				Row:         "tr.table_body.blocktarget",
				SkipClasses: []string{"notice"},
				Title:       "a.subject_link",
				Link:        "a.subject_link",
				Author:      "td.writer a",
				Views:       "td.hit",
				Likes:       "td.recomd",
				Thumbnail:   "img",
				Category:    "td.divsn a",
				Time:        "td.time",
			},
			DateFormats: []string{"2006.01.02"},
		},
		{
			Key:         "dcinside",
			DisplayName: "디시인사이드",
			BaseURL:     "https://gall.dcinside.com",
			BoardURL:    "https://gall.dcinside.com/board/lists/?id=dcbest",
			Paging:      Paging{Mode: PagingQuery, Param: "page"},
			Pages:       5,
			Delay:       time.Second,
			Headers:     map[string]string{"Referer": "https://gall.dcinside.com"},
			Selectors: Selectors{
				Row:      "tr.ub-content.us-post",
				Title:    "td.gall_tit a",
				Link:     "td.gall_tit a",
				Author:   "td.gall_writer .nickname",
				Views:    "td.gall_count",
				Comments: "td.gall_tit .reply_num",
				Likes:    "td.gall_recommend",
				Time:     "td.gall_date",
				TimeAttr: "title",
			},
		},
		{
			Key:         "fmkorea",
			DisplayName: "에펨코리아",
			BaseURL:     "https://www.fmkorea.com",
			BoardURL:    "https://www.fmkorea.com/index.php?mid=best",
			Headers:     map[string]string{"Referer": "https://www.fmkorea.com"},
			Selectors: Selectors{
				Row:      `li.li_best2_pop0, li.li_best2_pop1, li.li_best2_pop2, li.li_best2_pop3, li[class^="li "]`,
				Title:    "h3.title a",
				Link:     "h3.title a",
				Author:   ".author a",
				Views:    ".count",
				Comments: ".comment_count",
				Likes:    ".voted_count",
				Time:     ".regdate",
			},
			DateFormats: []string{"06.01.02"},
		},
		{
			Key:         "inven",
			DisplayName: "인벤",
			BaseURL:     "https://hot.inven.co.kr",
			BoardURL:    "https://hot.inven.co.kr/",
			Selectors: Selectors{
				Row:      ".list-common",
				Title:    ".name",
				Link:     ".title a",
				Author:   ".user",
				Views:    ".hits",
				Comments: ".comment",
				Likes:    ".reco",
				Category: ".cate",
				Time:     ".date",
			},
			// The name cell nests category and comment markers; only its
			// direct text is the title.
			RemoveElements: []ElementRemoval{
				{Selector: "*", ApplyToPath: "title"},
			},
			DateFormats: []string{"2006.01.02"},
		},
		{
			Key:         "arca",
			DisplayName: "아카라이브",
			BaseURL:     "https://arca.live",
			BoardURL:    "https://arca.live/b/live",
			Headers:     map[string]string{"Referer": "https://arca.live"},
			Selectors: Selectors{
				Row:         "a.vrow",
				SkipClasses: []string{"notice"},
				Title:       ".title",
				Link:        "", // the row itself is the anchor
				Author:      ".user-info",
				Views:       ".col-view",
				Comments:    ".comment-count",
				Likes:       ".col-rate",
				Time:        ".col-time time",
				TimeAttr:    "datetime",
			},
		},
		{
			Key:         "ppomppu",
			DisplayName: "뽐뿌",
			BaseURL:     "https://www.ppomppu.co.kr",
			BoardURL:    "https://www.ppomppu.co.kr/zboard/zboard.php?id=freeboard",
			Paging:      Paging{Mode: PagingQuery, Param: "page"},
			Pages:       5,
			Delay:       2 * time.Second,
			Selectors: Selectors{
				Row:         "tr.baseList",
				SkipClasses: []string{"baseNotice"},
				Title:       "a.baseList-title",
				Link:        "a.baseList-title",
				Author:      "a.baseList-name .list_name",
				Views:       ".baseList-views",
				Likes:       ".baseList-rec",
				Thumbnail:   "a.baseList-thumb img",
				Time:        "time.baseList-time",
			},
		},
		{
			Key:         "mlbpark",
			DisplayName: "엠팍",
			BaseURL:     "https://mlbpark.donga.com",
			BoardURL:    "https://mlbpark.donga.com/mp/b.php?b=bullpen",
			Selectors: Selectors{
				Row:         "table.tbl_type01 tbody tr",
				SkipClasses: []string{"notice"},
				Title:       "td.t_left a.txt",
				Link:        "td.t_left a.txt",
				Author:      "td.t_left span.nick",
				Views:       "td:nth-child(5)",
				Comments:    "span.reply_count",
				Likes:       "td:nth-child(6)",
				Time:        "td:nth-child(4)",
			},
		},
		{
			Key:         "natepann",
			DisplayName: "네이트판",
			BaseURL:     "https://pann.nate.com",
			BoardURL:    "https://pann.nate.com/talk/ranking",
			Selectors: Selectors{
				Row:      "ul.post_wrap li, div.rankinglist li",
				Link:     "a",
				Views:    ".count, .hit",
				Comments: ".comment, .reply",
				Likes:    ".like, .good",
				Time:     ".date, .time",
			},
			Handlers: map[string]FieldFunc{
				// Ranking entries mark the title inconsistently; fall back to
				// the link text.
				"title": func(s *goquery.Selection) string {
					link := s.Find("a").First()
					if title := strings.TrimSpace(link.Find(".tit, .title").Text()); title != "" {
						return title
					}
					return strings.TrimSpace(link.Text())
				},
			},
			DateFormats: []string{"2006.01.02"},
		},
		{
			Key:         "instiz",
			DisplayName: "인스티즈",
			BaseURL:     "https://www.instiz.net",
			BoardURL:    "https://www.instiz.net/pt",
			Headers:     map[string]string{"Referer": "https://www.instiz.net"},
			Selectors: Selectors{
				Row:      "#mainboard tr, .listbody",
				Title:    "a.listsubject, td.listsubject a",
				Link:     "a.listsubject, td.listsubject a",
				Author:   ".listwriter",
				Views:    ".listview",
				Comments: ".cmt, .listcmt",
				Likes:    ".listlike",
				Time:     ".listdate, .listtime",
			},
			DateFormats: []string{"2006.01.02"},
		},
		{
			Key:         "bobaedream",
			DisplayName: "보배드림",
			BaseURL:     "https://www.bobaedream.co.kr",
			BoardURL:    "https://www.bobaedream.co.kr/list?code=best",
			Paging:      Paging{Mode: PagingQuery, Param: "page", BareFirst: true},
			Pages:       5,
			Delay:       time.Second,
			Headers:     map[string]string{"Referer": "https://www.bobaedream.co.kr"},
			Selectors: Selectors{
				Row:       "table#boardlist tbody tr",
				Title:     "td.pl14 a.bsubject",
				TitleAttr: true,
				Link:      "td.pl14 a.bsubject",
				Author:    "span.author",
				Views:     "td.count",
				Comments:  "strong.totreply",
				Likes:     "td.recomm font",
				Time:      "td.date",
			},
		},
		{
			Key:         "etoland",
			DisplayName: "이토랜드",
			BaseURL:     "https://www.etoland.co.kr",
			BoardURL:    "https://www.etoland.co.kr/bbs/hit.php",
			Headers:     map[string]string{"Referer": "https://www.etoland.co.kr"},
			Selectors: Selectors{
				Row:         "li.hit_item",
				SkipClasses: []string{"ad_list"},
				Title:       "p.subject",
				Link:        "a.content_link",
				Author:      "span.nick",
				Views:       "span.hit",
				Comments:    "span.comment_cnt",
				Likes:       "span.good",
				Time:        "span.datetime",
			},
			Resolve: &ResolveConfig{
				Limit:          20,
				Concurrency:    20,
				TitleSelectors: []string{"#bo_v_title", ".view_title", "h1"},
			},
		},
		{
			Key:         "humoruniv",
			DisplayName: "웃긴대학",
			BaseURL:     "https://web.humoruniv.com",
			BoardURL:    "http://web.humoruniv.com/board/humor/list.html?table=pds&st=day",
			Paging:      Paging{Mode: PagingQuery, Param: "pg", BareFirst: true},
			Pages:       5,
			Delay:       time.Second,
			Headers:     map[string]string{"Referer": "https://web.humoruniv.com"},
			Selectors: Selectors{
				Row:    "dd",
				Title:  "span.subj a.li",
				Link:   "span.subj a.li",
				Author: ".hu_nick_txt",
				Likes:  "span.ok",
			},
		},
		{
			Key:         "cook82",
			DisplayName: "82쿡",
			BaseURL:     "https://www.82cook.com",
			BoardURL:    "https://www.82cook.com/entiz/enti.php?bn=15",
			Paging:      Paging{Mode: PagingQuery, Param: "page", BareFirst: true},
			Pages:       5,
			Delay:       time.Second,
			Selectors: Selectors{
				Row:         "#bbs table tbody tr",
				SkipClasses: []string{"noticeList"},
				Title:       "td.title a",
				Link:        "td.title a",
				Author:      "td.user_function",
				Comments:    "td.title em",
				Time:        "td.regdate",
				TimeAttr:    "title",
			},
			Handlers: map[string]FieldFunc{
				// The last numbers cell is the view count; earlier ones hold
				// the row number.
				"views": func(s *goquery.Selection) string {
					return s.Find("td.numbers").Last().Text()
				},
			},
			DateFormats: []string{"2006.01.02"},
		},
		{
			Key:         "slrclub",
			DisplayName: "SLR클럽",
			BaseURL:     "https://www.slrclub.com",
			BoardURL:    "https://www.slrclub.com/bbs/zboard.php?id=free",
			Paging:      Paging{Mode: PagingQuery, Param: "page", BareFirst: true},
			Pages:       5,
			Delay:       2 * time.Second,
			Selectors: Selectors{
				Row: "tbody tr",
				Skip: func(s *goquery.Selection) bool {
					return s.Find("td.list_notice").Length() > 0 ||
						s.Find("td.list_num").Length() == 0
				},
				Title:  "td.sbj a",
				Link:   "td.sbj a",
				Author: "td.list_name span.lop",
				Views:  "td.list_click",
				Likes:  "td.list_vote",
			},
			Handlers: map[string]FieldFunc{
				// Comment count rides inside the subject cell as "[N]".
				"comments": func(s *goquery.Selection) string {
					m := slrclubCommentRe.FindStringSubmatch(s.Find("td.sbj").Text())
					if m == nil {
						return ""
					}
					return m[1]
				},
				"time": func(s *goquery.Selection) string {
					if title, ok := s.Find("td.list_date span").Attr("title"); ok && title != "" {
						return title
					}
					return s.Find("td.list_date").Text()
				},
			},
			DateFormats: []string{"2006년 01월 02일"},
		},
		{
			Key:         "todayhumor",
			DisplayName: "오늘의유머",
			BaseURL:     "https://www.todayhumor.co.kr",
			BoardURL:    "https://www.todayhumor.co.kr/board/list.php?table=bestofbest",
			Paging:      Paging{Mode: PagingQuery, Param: "page", BareFirst: true},
			Pages:       5,
			Delay:       time.Second,
			Headers:     map[string]string{"Referer": "https://www.todayhumor.co.kr"},
			Selectors: Selectors{
				Row:         "table.table_list tbody tr",
				SkipClasses: []string{"notice"},
				Title:       "td.subject a",
				Link:        "td.subject a",
				Author:      "td.name",
				Views:       "td.hits",
				Comments:    ".list_memo_count_span",
				Likes:       "td.oknok",
				Thumbnail:   "img",
				Time:        "td.date",
			},
		},
	}
}

// CreateCrawlers builds an adapter for every supported board.
func CreateCrawlers(opts Options) []Crawler {
	configs := SiteConfigs()
	crawlers := make([]Crawler, 0, len(configs))
	for _, cfg := range configs {
		crawlers = append(crawlers, NewBoardCrawler(cfg, opts))
	}
	return crawlers
}

// CreateRegistry builds the default registry of all supported boards.
func CreateRegistry(opts Options) *Registry {
	return NewRegistry(CreateCrawlers(opts)...)
}

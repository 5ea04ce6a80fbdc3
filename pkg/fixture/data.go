package fixture

import "fmt"

// Post mirrors the placeholder API post resource.
type Post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Photo mirrors the placeholder API photo resource.
type Photo struct {
	AlbumID      int    `json:"albumId"`
	ID           int    `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Comment mirrors the placeholder API comment resource.
type Comment struct {
	PostID int    `json:"postId"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

// Country mirrors one entry of the country search API.
type Country struct {
	Name       string `json:"name"`
	Alpha2Code string `json:"alpha2_code"`
	Alpha3Code string `json:"alpha3_code"`
}

var postTitles = []string{
	"sunt aut facere repellat provident occaecati excepturi optio reprehenderit",
	"qui est esse",
	"ea molestias quasi exercitationem repellat qui ipsa sit aut",
	"eum et est occaecati",
	"nesciunt quas odio",
	"dolorem eum magni eos aperiam quia",
	"magnam facilis autem",
	"dolorem dolore est ipsam",
	"nesciunt iure omnis dolorem tempora et accusantium",
	"optio molestias id quia eum",
}

func posts() []Post {
	out := make([]Post, 0, len(postTitles))
	for i, title := range postTitles {
		out = append(out, Post{UserID: 1, ID: i + 1, Title: title, Body: "quia et suscipit suscipit recusandae consequuntur"})
	}
	return out
}

var photoColors = []string{"92c952", "771796", "24f355", "d32776", "f66b97"}

func photo(id int, baseURL string) Photo {
	color := photoColors[(id-1)%len(photoColors)]
	titles := []string{
		"accusamus beatae ad facilis cum similique qui sunt",
		"reprehenderit est deserunt velit ipsam",
		"officia porro iure quia iusto qui ipsa ut modi",
		"culpa odio esse rerum omnis laboriosam voluptate repudiandae",
		"natus nisi omnis corporis facere molestiae rerum in",
	}
	return Photo{
		AlbumID:      1,
		ID:           id,
		Title:        titles[(id-1)%len(titles)],
		URL:          fmt.Sprintf("%s/600/%s", baseURL, color),
		ThumbnailURL: fmt.Sprintf("%s/150/%s", baseURL, color),
	}
}

func comments() []Comment {
	return []Comment{
		{PostID: 1, ID: 1, Name: "id labore ex et quam laborum", Email: "Eliseo@gardner.biz", Body: "laudantium enim quasi est quidem magnam voluptate ipsam eos"},
		{PostID: 1, ID: 2, Name: "quo vero reiciendis velit similique earum", Email: "Jayne_Kuhic@sydney.com", Body: "est natus enim nihil est dolore omnis voluptatem numquam"},
		{PostID: 1, ID: 3, Name: "odio adipisci rerum aut animi", Email: "Nikita@garfield.biz", Body: "quia molestiae reprehenderit quasi aspernatur"},
		{PostID: 2, ID: 4, Name: "et fugit eligendi deleniti quidem qui sint nihil autem", Email: "Lew@alysha.tv", Body: "doloribus at sed quis culpa deserunt consectetur qui praesentium"},
		{PostID: 2, ID: 5, Name: "repellat consequatur praesentium vel minus molestias voluptatum", Email: "Hayden@althea.biz", Body: "maiores sed dolores similique labore et inventore et"},
	}
}

var countries = []Country{
	{"Åland Islands", "AX", "ALA"},
	{"Cayman Islands", "KY", "CYM"},
	{"Cocos (Keeling) Islands", "CC", "CCK"},
	{"Cook Islands", "CK", "COK"},
	{"Falkland Islands (Malvinas)", "FK", "FLK"},
	{"Faroe Islands", "FO", "FRO"},
	{"France", "FR", "FRA"},
	{"Germany", "DE", "DEU"},
	{"Heard Island and McDonald Islands", "HM", "HMD"},
	{"Jersey", "JE", "JEY"},
	{"Marshall Islands", "MH", "MHL"},
	{"Netherlands", "NL", "NLD"},
	{"Northern Mariana Islands", "MP", "MNP"},
	{"Solomon Islands", "SB", "SLB"},
	{"South Georgia and the South Sandwich Islands", "GS", "SGS"},
	{"Turks and Caicos Islands", "TC", "TCA"},
	{"United States Minor Outlying Islands", "UM", "UMI"},
	{"Virgin Islands (British)", "VG", "VGB"},
	{"Virgin Islands (U.S.)", "VI", "VIR"},
	{"Wallis and Futuna Islands", "WF", "WLF"},
}

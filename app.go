package main

type App struct {
	cfg   Config
	Data  Page
	DB    *LinkDB
	Cache Cache
	Gate  *adminGate

	Templates Templates
}

func NewApp(cfg Config) (*App, error) {
	db, err := newDB(cfg.DBFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg: cfg,
		Data: Page{
			LogoURL: cfg.PageLogoURL,
			Title:   cfg.PageTitle,
			Intro:   cfg.PageIntro,
		},
		DB:        &LinkDB{db},
		Cache:     newMemoryCache(cfg.CacheTTL),
		Gate:      newAdminGate(cfg.Auth),
		Templates: newTemplates(),
	}

	return app, nil
}

// cachedLinks reads the sorted listing through the cache. The key carries
// the sort method; the tag is shared so one invalidation drops all three.
func (app *App) cachedLinks(sort string) ([]Link, error) {
	if v, ok := app.Cache.Get("links:" + sort); ok {
		return v.([]Link), nil
	}

	links, err := app.DB.GetLinks(sort)
	if err != nil {
		return nil, err
	}

	app.Cache.Set("links:"+sort, cacheTagLinks, links)
	return links, nil
}

func (app *App) cachedIcons() ([]Icon, error) {
	if v, ok := app.Cache.Get("icons"); ok {
		return v.([]Icon), nil
	}

	icons, err := app.DB.GetIcons()
	if err != nil {
		return nil, err
	}

	app.Cache.Set("icons", cacheTagIcons, icons)
	return icons, nil
}
